// Package prereq assembles the checks that must pass before a release:
// the version bump is valid and moves forward, pre-releases are not
// published under the default dist-tag, and the release tag is not taken.
package prereq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanmeadows/shipcheck/internal/git"
	"github.com/alanmeadows/shipcheck/internal/tasklist"
	"github.com/alanmeadows/shipcheck/internal/version"
)

// Step titles, in execution order.
const (
	TitleValidateVersion = "Validate version"
	TitlePrerelease      = "Check for pre-release version"
	TitleTagExistence    = "Check git tag existence"
)

// DefaultTagPrefix is prepended to the version to name the release tag.
const DefaultTagPrefix = "v"

// Package is the read-only view of the package being released.
type Package struct {
	Version string
	Private bool
}

// Options are the flags of a release run.
type Options struct {
	Publish bool
	// Tag is the explicit dist-tag, empty when none was given.
	Tag string
	// PreID names the pre-release identifier for pre* increments.
	PreID string
}

// State is threaded through the steps. NewVersion is set by the first step
// and read by the ones after it.
type State struct {
	NewVersion string
}

// Step is one named check.
type Step struct {
	Title string
	// Enabled decides from the run options whether the step runs. Nil
	// means always.
	Enabled func(Options) bool
	Action  func(ctx context.Context, state State) (State, error)
}

// IsEnabled reports whether the step runs for opts.
func (s Step) IsEnabled(opts Options) bool {
	return s.Enabled == nil || s.Enabled(opts)
}

// TagSource is the version-control view the tag check needs.
type TagSource interface {
	Fetch(ctx context.Context) error
	LookupTag(ctx context.Context, name string) (git.TagLookup, error)
}

// VersionScheme is the version arithmetic the checks rely on.
type VersionScheme interface {
	IsValidInput(input string) bool
	Next(current, input, preid string) (string, error)
	IsGreater(current, next string) bool
	IsPrerelease(v string) bool
}

// Checker builds prerequisite steps.
type Checker struct {
	tags      TagSource
	versions  VersionScheme
	tagPrefix string
}

// Option configures a Checker.
type Option func(*Checker)

// WithTagPrefix overrides DefaultTagPrefix.
func WithTagPrefix(prefix string) Option {
	return func(c *Checker) {
		c.tagPrefix = prefix
	}
}

// WithVersionScheme replaces the semver scheme.
func WithVersionScheme(v VersionScheme) Option {
	return func(c *Checker) {
		c.versions = v
	}
}

// New creates a Checker that looks tags up in tags.
func New(tags TagSource, opts ...Option) *Checker {
	c := &Checker{tags: tags, versions: version.Semver{}, tagPrefix: DefaultTagPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TagName returns the release tag for v.
func (c *Checker) TagName(v string) string {
	return c.tagPrefix + v
}

// Steps returns the three prerequisite steps for releasing pkg with input.
// Nothing runs until the caller executes them.
func (c *Checker) Steps(input string, pkg Package, opts Options) []Step {
	return []Step{
		{
			Title: TitleValidateVersion,
			Action: func(_ context.Context, state State) (State, error) {
				return c.validateVersion(state, input, pkg, opts)
			},
		},
		{
			Title:   TitlePrerelease,
			Enabled: func(o Options) bool { return o.Publish },
			Action: func(_ context.Context, state State) (State, error) {
				return state, c.checkPrerelease(state, pkg, opts)
			},
		},
		{
			Title: TitleTagExistence,
			Action: func(ctx context.Context, state State) (State, error) {
				return state, c.checkTag(ctx, state)
			},
		},
	}
}

func (c *Checker) validateVersion(state State, input string, pkg Package, opts Options) (State, error) {
	if !c.versions.IsValidInput(input) {
		return state, &InvalidVersionInputError{Input: input}
	}

	next, err := c.versions.Next(pkg.Version, input, opts.PreID)
	if err != nil {
		// The input is valid, so either the current version or the preid is bad.
		return state, fmt.Errorf("computing new version from %q: %w", pkg.Version, err)
	}

	if !c.versions.IsGreater(pkg.Version, next) {
		return state, &VersionNotGreaterError{Current: pkg.Version, New: next}
	}

	slog.Debug("computed new version", "current", pkg.Version, "input", input, "new", next)
	state.NewVersion = next
	return state, nil
}

func (c *Checker) checkPrerelease(state State, pkg Package, opts Options) error {
	if err := requireVersion(state); err != nil {
		return err
	}
	if !pkg.Private && c.versions.IsPrerelease(state.NewVersion) && opts.Tag == "" {
		return ErrMissingDistTag
	}
	return nil
}

func (c *Checker) checkTag(ctx context.Context, state State) error {
	if err := requireVersion(state); err != nil {
		return err
	}
	tag := c.TagName(state.NewVersion)

	if err := c.tags.Fetch(ctx); err != nil {
		return &FetchError{Err: err}
	}

	lookup, err := c.tags.LookupTag(ctx, tag)
	if err != nil {
		return &QueryError{Tag: tag, Command: git.TagQueryCommand(tag), Err: err}
	}

	switch lookup.Status {
	case git.TagExists:
		return &TagExistsError{Tag: tag, Ref: lookup.Ref}
	case git.TagQueryFailed:
		return &QueryError{Tag: tag, Command: git.TagQueryCommand(tag), Diagnostic: lookup.Diagnostic}
	default:
		slog.Debug("release tag is free", "tag", tag)
		return nil
	}
}

var errNoVersion = errors.New("new version has not been computed")

func requireVersion(state State) error {
	if state.NewVersion == "" {
		return errNoVersion
	}
	return nil
}

// Run executes steps in order with the task-list runner and returns the
// final state. The first failing step's error is returned unchanged.
func Run(ctx context.Context, steps []Step, opts Options, runOpts ...tasklist.Option) (State, tasklist.Report, error) {
	return tasklist.Run(ctx, Tasks(steps, opts), State{}, runOpts...)
}

// Tasks adapts steps to task-list tasks, binding each enablement predicate
// to opts.
func Tasks(steps []Step, opts Options) []tasklist.Task[State] {
	tasks := make([]tasklist.Task[State], len(steps))
	for i, s := range steps {
		tasks[i] = tasklist.Task[State]{
			Title:   s.Title,
			Enabled: func() bool { return s.IsEnabled(opts) },
			Run:     s.Action,
		}
	}
	return tasks
}
