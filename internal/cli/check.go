package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alanmeadows/shipcheck/internal/git"
	"github.com/alanmeadows/shipcheck/internal/history"
	"github.com/alanmeadows/shipcheck/internal/prereq"
	"github.com/alanmeadows/shipcheck/internal/proc"
	"github.com/alanmeadows/shipcheck/internal/tasklist"
	"github.com/alanmeadows/shipcheck/internal/version"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	checkCurrent   string
	checkPrivate   bool
	checkNoPublish bool
	checkTag       string
	checkPreID     string
	checkRemote    string
	checkTagPrefix string
	checkNoHistory bool
)

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkCurrent, "current", "", "Current version (default: latest release tag)")
	f.BoolVar(&checkPrivate, "private", false, "The package is private and never published to a registry")
	f.BoolVar(&checkNoPublish, "no-publish", false, "Skip publish-only checks")
	f.StringVar(&checkTag, "tag", "", "Dist-tag the release will be published under")
	f.StringVar(&checkPreID, "preid", "", "Pre-release identifier for pre* increments (e.g. beta)")
	f.StringVar(&checkRemote, "remote", "", "Git remote to fetch tags from")
	f.StringVar(&checkTagPrefix, "tag-prefix", "", "Prefix of release tags")
	f.BoolVar(&checkNoHistory, "no-history", false, "Do not record this run")
}

var checkCmd = &cobra.Command{
	Use:   "check [bump]",
	Short: "Run release prerequisite checks",
	Long: `Validate a version bump before releasing.

The bump is one of ` + strings.Join(version.Increments, ", ") + `
or an explicit semver version. Three checks run in order and the
first failure stops the run:

  1. Validate version          the bump is valid and higher than current
  2. Check for pre-release     publishing a pre-release needs --tag
  3. Check git tag existence   fetches, then looks for the release tag

Without a bump argument on a terminal, shipcheck asks for one.`,
	Example: `  shipcheck check minor
  shipcheck check 2.0.0-rc.1 --tag next
  shipcheck check prerelease --preid beta --no-publish
  shipcheck check patch --current 1.4.2 --remote upstream`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := appConfig

		prefix := cfg.Git.TagPrefix
		if cmd.Flags().Changed("tag-prefix") {
			prefix = checkTagPrefix
		}
		opts := prereq.Options{
			Publish: cfg.Publish.IsEnabled() && !checkNoPublish,
			Tag:     firstNonEmpty(checkTag, cfg.Publish.Tag),
			PreID:   firstNonEmpty(checkPreID, cfg.Version.PreID),
		}

		runner := proc.NewExecRunner(proc.WithTimeout(cfg.Git.ParseCommandTimeout()))
		gitClient := git.NewClient(runner, git.WithRemote(firstNonEmpty(checkRemote, cfg.Git.Remote)))

		current, err := resolveCurrentVersion(ctx, gitClient, checkCurrent, prefix)
		if err != nil {
			return err
		}

		var input string
		if len(args) > 0 {
			input = args[0]
		} else {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("a version bump is required: %s, or a version", strings.Join(version.Increments, ", "))
			}
			input, err = promptBump(current, opts.PreID)
			if err != nil {
				return err
			}
		}

		var store *history.Store
		if cfg.History.IsEnabled() && !checkNoHistory {
			store = newHistoryStore(cfg)
		}

		req := checkRequest{
			Input:     input,
			Package:   prereq.Package{Version: current, Private: checkPrivate},
			Options:   opts,
			TagPrefix: prefix,
		}
		_, err = executeCheck(ctx, cmd.OutOrStdout(), gitClient, store, req)
		return err
	},
}

// checkRequest is everything one check run needs besides its collaborators.
type checkRequest struct {
	Input     string
	Package   prereq.Package
	Options   prereq.Options
	TagPrefix string
}

var readyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

// executeCheck runs the prerequisite steps, prints progress to out and
// records the run in store when it is non-nil.
func executeCheck(ctx context.Context, out io.Writer, tags prereq.TagSource, store *history.Store, req checkRequest) (prereq.State, error) {
	checker := prereq.New(tags, prereq.WithTagPrefix(req.TagPrefix))
	steps := checker.Steps(req.Input, req.Package, req.Options)

	slog.Debug("running prerequisite checks",
		"input", req.Input,
		"current", req.Package.Version,
		"publish", req.Options.Publish,
		"tag", req.Options.Tag,
	)
	state, report, runErr := prereq.Run(ctx, steps, req.Options,
		tasklist.WithObserver(tasklist.NewConsoleObserver(out)))

	if store != nil {
		run := historyRun(req, checker, state, report, runErr)
		if path, err := store.Record(run); err != nil {
			slog.Warn("failed to record check run", "error", err)
		} else {
			slog.Debug("recorded check run", "path", path)
		}
	}

	if runErr != nil {
		return state, runErr
	}

	fmt.Fprintf(out, "\n%s %s → %s (tag %s)\n",
		readyStyle.Render("Ready to release"),
		req.Package.Version, state.NewVersion, checker.TagName(state.NewVersion))
	return state, nil
}

func historyRun(req checkRequest, checker *prereq.Checker, state prereq.State, report tasklist.Report, runErr error) history.Run {
	run := history.Run{
		Input:          req.Input,
		CurrentVersion: req.Package.Version,
		NewVersion:     state.NewVersion,
		Publish:        req.Options.Publish,
		DistTag:        req.Options.Tag,
		Passed:         runErr == nil,
	}
	if state.NewVersion != "" {
		run.Tag = checker.TagName(state.NewVersion)
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if failed := report.Failed(); failed != nil {
		run.FailedStep = failed.Title
	}
	for _, res := range report.Results {
		run.Steps = append(run.Steps, history.StepRecord{
			Title:    res.Title,
			Status:   res.Status.String(),
			Duration: res.Duration,
		})
	}
	return run
}

// resolveCurrentVersion returns explicit when set, otherwise the version
// named by the latest tag carrying prefix.
func resolveCurrentVersion(ctx context.Context, c *git.Client, explicit, prefix string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	tag, ok, err := c.LatestTag(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("finding latest release tag: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("no release tag matching %q found; pass --current", prefix+"*")
	}
	current := strings.TrimPrefix(tag, prefix)
	if !version.IsValid(current) {
		return "", fmt.Errorf("latest tag %q is not a semver version; pass --current", tag)
	}
	slog.Debug("derived current version from tag", "tag", tag, "version", current)
	return current, nil
}

const customBump = "custom"

// bumpOptions lists the increments with the version each would produce.
func bumpOptions(current, preid string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(version.Increments)+1)
	for _, kw := range version.Increments {
		label := kw
		if next, err := version.Increment(current, kw, preid); err == nil {
			label = fmt.Sprintf("%-11s %s", kw, next)
		}
		opts = append(opts, huh.NewOption(label, kw))
	}
	return append(opts, huh.NewOption("Other (specify)", customBump))
}

func promptBump(current, preid string) (string, error) {
	var choice, custom string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Select version increment (current: %s)", current)).
				Options(bumpOptions(current, preid)...).
				Value(&choice),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Version").
				Value(&custom).
				Validate(func(s string) error {
					if !version.IsValid(s) {
						return errors.New("please specify a valid semver, for example 1.2.3")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return choice != customBump }),
	)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	if choice == customBump {
		return strings.TrimSpace(custom), nil
	}
	return choice, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
