package config

import (
	"fmt"
	"time"
)

// Config is the top-level shipcheck configuration.
type Config struct {
	Git     GitConfig     `json:"git"`
	Publish PublishConfig `json:"publish"`
	Version VersionConfig `json:"version"`
	History HistoryConfig `json:"history"`
}

// Validate reports values that cannot be used as configured.
func (c Config) Validate() error {
	if c.Git.CommandTimeout != "" {
		if err := checkDuration(c.Git.CommandTimeout); err != nil {
			return fmt.Errorf("git.command_timeout: %w", err)
		}
	}
	if err := checkDuration(c.History.LockTimeout); err != nil {
		return fmt.Errorf("history.lock_timeout: %w", err)
	}
	return nil
}

func checkDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration %q must be positive", s)
	}
	return nil
}

// GitConfig controls how release tags are looked up.
type GitConfig struct {
	// Remote is fetched before the tag lookup. Empty uses git's default.
	Remote         string `json:"remote"`
	TagPrefix      string `json:"tag_prefix"`
	CommandTimeout string `json:"command_timeout"`
}

// ParseCommandTimeout returns the per-command timeout. Zero means none.
// Values rejected by Validate fall back to 2m.
func (g GitConfig) ParseCommandTimeout() time.Duration {
	if g.CommandTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(g.CommandTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// PublishConfig holds publish defaults.
type PublishConfig struct {
	Enabled *bool `json:"enabled"`
	// Tag is the default dist-tag.
	Tag string `json:"tag"`
}

// IsEnabled returns whether runs are treated as publishing.
// Defaults to true when not explicitly set.
func (p PublishConfig) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// VersionConfig holds version bump settings.
type VersionConfig struct {
	PreID string `json:"preid"`
}

// HistoryConfig controls the run report store.
type HistoryConfig struct {
	Enabled     *bool  `json:"enabled"`
	Dir         string `json:"dir"`
	LockTimeout string `json:"lock_timeout"`
}

// IsEnabled returns whether run reports are written. Defaults to true.
func (h HistoryConfig) IsEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}

// ParseLockTimeout returns the history lock timeout. Values rejected by
// Validate fall back to 5s.
func (h HistoryConfig) ParseLockTimeout() time.Duration {
	d, err := time.ParseDuration(h.LockTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Git: GitConfig{
			TagPrefix: "v",
		},
		Publish: PublishConfig{
			Enabled: boolPtr(true),
		},
		History: HistoryConfig{
			Enabled:     boolPtr(true),
			Dir:         ".shipcheck/history",
			LockTimeout: "5s",
		},
	}
}
