// Package git wraps the git commands shipcheck needs: syncing remote tags,
// looking a tag up, and finding the latest release tag.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanmeadows/shipcheck/internal/proc"
)

// Client runs git commands in a repository through a proc.Runner.
type Client struct {
	runner proc.Runner
	dir    string
	remote string
}

// Option configures a Client.
type Option func(*Client)

// WithDir runs git in dir instead of the current directory.
func WithDir(dir string) Option {
	return func(c *Client) {
		c.dir = dir
	}
}

// WithRemote names the remote to fetch from. Empty means git's default.
func WithRemote(remote string) Option {
	return func(c *Client) {
		c.remote = remote
	}
}

// NewClient creates a git client.
func NewClient(runner proc.Runner, opts ...Option) *Client {
	c := &Client{runner: runner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) run(ctx context.Context, args ...string) (proc.Result, error) {
	return c.runner.Run(ctx, c.dir, "git", args...)
}

// Fetch updates the local view of the remote, tags included. Any failure,
// including a non-zero exit, is returned as an error.
func (c *Client) Fetch(ctx context.Context) error {
	args := []string{"fetch"}
	if c.remote != "" {
		args = append(args, c.remote)
	}
	cmdline := proc.CommandLine("git", args...)

	slog.Debug("fetching remote", "remote", c.remote, "dir", c.dir)
	res, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	return res.Err(cmdline)
}

// LookupTag checks whether refs/tags/<name> resolves locally.
//
// The returned error is only set when git could not be run at all; every
// completed query is described by the TagLookup, see ClassifyTagQuery.
func (c *Client) LookupTag(ctx context.Context, name string) (TagLookup, error) {
	args := tagQueryArgs(name)
	res, err := c.run(ctx, args...)
	if err != nil {
		return TagLookup{}, err
	}
	lookup := ClassifyTagQuery(res)
	slog.Debug("tag lookup", "tag", name, "status", lookup.Status, "exit_code", res.ExitCode)
	return lookup, nil
}

// TagQueryCommand renders the command LookupTag runs for name.
func TagQueryCommand(name string) string {
	return proc.CommandLine("git", tagQueryArgs(name)...)
}

func tagQueryArgs(name string) []string {
	return []string{"rev-parse", "--quiet", "--verify", "refs/tags/" + name}
}

// LatestTag returns the most recent tag reachable from HEAD whose name
// starts with prefix. ok is false when there is no such tag.
func (c *Client) LatestTag(ctx context.Context, prefix string) (tag string, ok bool, err error) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if prefix != "" {
		args = append(args, "--match", prefix+"*")
	}
	res, err := c.run(ctx, args...)
	if err != nil {
		return "", false, err
	}
	if res.Failed() {
		// describe exits 128 with "No names found" when nothing matches.
		if strings.Contains(res.Stderr, "No names found") || strings.Contains(res.Stderr, "No tags can describe") {
			return "", false, nil
		}
		return "", false, res.Err(proc.CommandLine("git", args...))
	}
	return strings.TrimSpace(res.Stdout), true, nil
}

// RepoRoot returns the top-level directory of the working tree.
func (c *Client) RepoRoot(ctx context.Context) (string, error) {
	args := []string{"rev-parse", "--show-toplevel"}
	res, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if err := res.Err(proc.CommandLine("git", args...)); err != nil {
		return "", fmt.Errorf("finding repository root: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}
