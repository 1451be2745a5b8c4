package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/alanmeadows/shipcheck/internal/git"
	"github.com/alanmeadows/shipcheck/internal/proc"
	"github.com/tidwall/jsonc"
)

// DirName is the per-repository directory holding config and history.
const DirName = ".shipcheck"

// FileName is the config file name at both user and repo level.
const FileName = "shipcheck.jsonc"

// layer is one config file in the resolution chain.
type layer struct {
	name     string
	path     string
	required bool
}

// Load reads and merges configuration.
// Resolution order: defaults, user file (~/.config/shipcheck/shipcheck.jsonc),
// repo file (.shipcheck/shipcheck.jsonc), then SHIPCHECK_* environment
// variables. A non-empty path replaces the repo file and must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	for _, l := range layers(path) {
		m, err := readLayer(l.path)
		if errors.Is(err, fs.ErrNotExist) && !l.required {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s config: %w", l.name, err)
		}
		if err := overlay(&cfg, m); err != nil {
			return nil, fmt.Errorf("merging %s config %s: %w", l.name, l.path, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func layers(explicit string) []layer {
	var ls []layer
	if userDir, err := os.UserConfigDir(); err == nil {
		ls = append(ls, layer{name: "user", path: filepath.Join(userDir, "shipcheck", FileName)})
	}
	switch {
	case explicit != "":
		ls = append(ls, layer{name: "explicit", path: explicit, required: true})
	default:
		if root := RepoRoot(); root != "" {
			ls = append(ls, layer{name: "repo", path: filepath.Join(root, DirName, FileName)})
		}
	}
	return ls
}

// readLayer reads a JSONC file into a generic map.
func readLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// overlay deep-merges src over cfg. Both sides go through their JSON form
// so that explicit false and empty values in src win over defaults.
func overlay(cfg *Config, src map[string]any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(raw, &dst); err != nil {
		return err
	}
	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}
	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

type envOverride struct {
	name string
	// keepEmpty applies the variable even when it is set to "".
	keepEmpty bool
	apply     func(*Config, string)
}

var envOverrides = []envOverride{
	{name: "SHIPCHECK_REMOTE", apply: func(c *Config, v string) { c.Git.Remote = v }},
	{name: "SHIPCHECK_TAG_PREFIX", keepEmpty: true, apply: func(c *Config, v string) { c.Git.TagPrefix = v }},
	{name: "SHIPCHECK_DIST_TAG", apply: func(c *Config, v string) { c.Publish.Tag = v }},
	{name: "SHIPCHECK_PREID", apply: func(c *Config, v string) { c.Version.PreID = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || (v == "" && !o.keepEmpty) {
			continue
		}
		o.apply(cfg, v)
	}
}

// RepoRoot returns the top level of the enclosing git repository, or ""
// outside one.
func RepoRoot() string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	root, err := git.NewClient(proc.NewExecRunner()).RepoRoot(ctx)
	if err != nil {
		return ""
	}
	return root
}
