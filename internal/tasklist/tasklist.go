// Package tasklist runs an ordered list of titled tasks, threading a state
// value from one task to the next and stopping at the first failure.
package tasklist

import (
	"context"
	"log/slog"
	"time"
)

// Task is one titled unit of work. Run receives the state produced by the
// previous task and returns the state handed to the next one.
type Task[S any] struct {
	Title string
	// Enabled reports whether the task should run. Nil means always.
	Enabled func() bool
	Run     func(ctx context.Context, state S) (S, error)
}

func (t Task[S]) enabled() bool {
	return t.Enabled == nil || t.Enabled()
}

// Status is the state of a task within a run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSkipped
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSkipped:
		return "skipped"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a task changing status.
type Event struct {
	Index    int
	Title    string
	Status   Status
	Err      error
	Duration time.Duration
}

// Observer is notified of every task transition.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Result is the final status of one task.
type Result struct {
	Title    string
	Status   Status
	Err      error
	Duration time.Duration
}

// Report summarises a run, one Result per task in order.
type Report struct {
	Results []Result
}

// Succeeded reports whether no task failed and none was left pending.
func (r Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusPending {
			return false
		}
	}
	return true
}

// Failed returns the failing task's result, or nil.
func (r Report) Failed() *Result {
	for i := range r.Results {
		if r.Results[i].Status == StatusFailed {
			return &r.Results[i]
		}
	}
	return nil
}

type config struct {
	observers []Observer
}

// Option configures Run.
type Option func(*config)

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// Run executes the enabled tasks in order. The first failing task stops
// the run; its error is returned unchanged and every later task stays
// pending. A cancelled ctx stops the run before the next task starts.
func Run[S any](ctx context.Context, tasks []Task[S], initial S, opts ...Option) (S, Report, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	emit := func(e Event) {
		for _, o := range cfg.observers {
			o.OnEvent(e)
		}
	}

	report := Report{Results: make([]Result, len(tasks))}
	for i, t := range tasks {
		report.Results[i] = Result{Title: t.Title, Status: StatusPending}
	}

	state := initial
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			slog.Debug("task list cancelled", "task", t.Title, "error", err)
			return state, report, err
		}

		if !t.enabled() {
			report.Results[i].Status = StatusSkipped
			slog.Debug("task skipped", "task", t.Title)
			emit(Event{Index: i, Title: t.Title, Status: StatusSkipped})
			continue
		}

		report.Results[i].Status = StatusRunning
		emit(Event{Index: i, Title: t.Title, Status: StatusRunning})
		slog.Debug("task started", "task", t.Title)

		start := time.Now()
		next, err := t.Run(ctx, state)
		elapsed := time.Since(start)
		report.Results[i].Duration = elapsed

		if err != nil {
			report.Results[i].Status = StatusFailed
			report.Results[i].Err = err
			slog.Debug("task failed", "task", t.Title, "duration", elapsed, "error", err)
			emit(Event{Index: i, Title: t.Title, Status: StatusFailed, Err: err, Duration: elapsed})
			return state, report, err
		}

		state = next
		report.Results[i].Status = StatusSucceeded
		slog.Debug("task succeeded", "task", t.Title, "duration", elapsed)
		emit(Event{Index: i, Title: t.Title, Status: StatusSucceeded, Duration: elapsed})
	}
	return state, report, nil
}
