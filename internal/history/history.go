// Package history records prerequisite check runs as markdown reports with
// YAML frontmatter, one file per run.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const idLayout = "20060102T150405.000000000Z"

// Run is one recorded prerequisite check.
type Run struct {
	ID             string
	Time           time.Time
	Input          string
	CurrentVersion string
	NewVersion     string
	Tag            string
	Publish        bool
	DistTag        string
	Passed         bool
	FailedStep     string
	Error          string
	Steps          []StepRecord
}

// StepRecord is the outcome of one step within a run.
type StepRecord struct {
	Title    string
	Status   string
	Duration time.Duration
}

// Store reads and writes run reports in a directory.
type Store struct {
	dir         string
	lockTimeout time.Duration
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, lockTimeout time.Duration) *Store {
	return &Store{dir: dir, lockTimeout: lockTimeout}
}

// Dir returns the directory holding the reports.
func (s *Store) Dir() string {
	return s.dir
}

// Record writes run and returns the report path. A zero run.Time is set to now.
func (s *Store) Record(run Run) (string, error) {
	if run.Time.IsZero() {
		run.Time = time.Now()
	}
	run.Time = run.Time.UTC()

	name := run.Time.Format(idLayout)
	if run.NewVersion != "" {
		name += "-" + run.NewVersion
	}
	run.ID = name
	path := filepath.Join(s.dir, name+".md")

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating history directory: %w", err)
	}

	err := lockDir(s.dir, lockExclusive, s.lockTimeout, func() error {
		return writeReport(path, metaFromRun(run), renderBody(run))
	})
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return path, nil
}

// List returns recorded runs, newest first. A limit of zero or less returns all.
func (s *Store) List(limit int) ([]Run, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, nil
	}

	var runs []Run
	err := lockDir(s.dir, lockShared, s.lockTimeout, func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return fmt.Errorf("reading history directory: %w", err)
		}

		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			names = append(names, e.Name())
		}
		// IDs start with a sortable UTC timestamp.
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		if limit > 0 && len(names) > limit {
			names = names[:limit]
		}

		for _, name := range names {
			meta, _, err := readReport(filepath.Join(s.dir, name))
			if err != nil {
				return err
			}
			runs = append(runs, meta.run(strings.TrimSuffix(name, ".md")))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
