package prereq

import (
	"context"
	"errors"
	"testing"

	"github.com/alanmeadows/shipcheck/internal/git"
	"github.com/alanmeadows/shipcheck/internal/proc"
	"github.com/alanmeadows/shipcheck/internal/proc/mockproc"
	"github.com/alanmeadows/shipcheck/internal/tasklist"
	"github.com/alanmeadows/shipcheck/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newChecker returns a Checker backed by a real git.Client over a mock runner.
func newChecker(t *testing.T, opts ...Option) (*Checker, *mockproc.MockRunner) {
	t.Helper()
	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	return New(git.NewClient(runner), opts...), runner
}

func expectFetch(runner *mockproc.MockRunner, res proc.Result, err error) *gomock.Call {
	return runner.EXPECT().Run(gomock.Any(), "", "git", "fetch").Return(res, err)
}

func expectTagQuery(runner *mockproc.MockRunner, tag string, res proc.Result) *gomock.Call {
	return runner.EXPECT().
		Run(gomock.Any(), "", "git", "rev-parse", "--quiet", "--verify", "refs/tags/"+tag).
		Return(res, nil)
}

func TestSteps_ShapeAndPurity(t *testing.T) {
	// No expectations on the runner: building steps must not run anything.
	c, _ := newChecker(t)

	steps := c.Steps("minor", Package{Version: "1.2.3"}, Options{})
	require.Len(t, steps, 3)
	assert.Equal(t, TitleValidateVersion, steps[0].Title)
	assert.Equal(t, TitlePrerelease, steps[1].Title)
	assert.Equal(t, TitleTagExistence, steps[2].Title)

	assert.True(t, steps[0].IsEnabled(Options{}))
	assert.False(t, steps[1].IsEnabled(Options{Publish: false}))
	assert.True(t, steps[1].IsEnabled(Options{Publish: true}))
	assert.True(t, steps[2].IsEnabled(Options{Publish: true}))
}

// --- Step 1 ---

func TestValidateVersion_InvalidInput(t *testing.T) {
	c, _ := newChecker(t)

	for _, input := range []string{"", "bump", "1.2", "Minor", "latest", "v1"} {
		t.Run(input, func(t *testing.T) {
			steps := c.Steps(input, Package{Version: "1.2.3"}, Options{})
			state, err := steps[0].Action(context.Background(), State{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidVersionInput)
			assert.Equal(t,
				"Version should be either patch, minor, major, prepatch, preminor, premajor, prerelease, or a valid semver version.",
				err.Error())
			assert.Empty(t, state.NewVersion)

			var inputErr *InvalidVersionInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, input, inputErr.Input)
		})
	}
}

func TestValidateVersion_Keywords(t *testing.T) {
	c, _ := newChecker(t)
	for _, keyword := range version.Increments {
		t.Run(keyword, func(t *testing.T) {
			steps := c.Steps(keyword, Package{Version: "1.2.3"}, Options{})
			state, err := steps[0].Action(context.Background(), State{})
			require.NoError(t, err)
			assert.True(t, version.IsGreater("1.2.3", state.NewVersion))
		})
	}
}

func TestValidateVersion_ExplicitVersion(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("2.0.0-rc.1", Package{Version: "1.2.3"}, Options{})
	state, err := steps[0].Action(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-rc.1", state.NewVersion)
}

func TestValidateVersion_PreID(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("premajor", Package{Version: "1.2.3"}, Options{PreID: "beta"})
	state, err := steps[0].Action(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-beta.0", state.NewVersion)
}

func TestValidateVersion_NotGreater(t *testing.T) {
	c, _ := newChecker(t)

	for _, input := range []string{"1.2.3", "1.2.2", "0.9.0", "1.2.3-0"} {
		t.Run(input, func(t *testing.T) {
			steps := c.Steps(input, Package{Version: "1.2.3"}, Options{})
			state, err := steps[0].Action(context.Background(), State{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrVersionNotGreater)
			assert.Empty(t, state.NewVersion)

			var nge *VersionNotGreaterError
			require.True(t, errors.As(err, &nge))
			assert.Equal(t, "1.2.3", nge.Current)
			assert.Contains(t, err.Error(), "`1.2.3`")
		})
	}
}

// shrinkingScheme maps every keyword to a smaller version.
type shrinkingScheme struct{ version.Semver }

func (shrinkingScheme) Next(_, _, _ string) (string, error) { return "0.0.1", nil }

func TestValidateVersion_NonIncreasingScheme(t *testing.T) {
	c, _ := newChecker(t, WithVersionScheme(shrinkingScheme{}))

	steps := c.Steps("patch", Package{Version: "1.2.3"}, Options{})
	_, err := steps[0].Action(context.Background(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionNotGreater)
	assert.Equal(t, "New version `0.0.1` should be higher than current version `1.2.3`", err.Error())
}

func TestValidateVersion_BadCurrentVersion(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("patch", Package{Version: "banana"}, Options{})
	_, err := steps[0].Action(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banana")
	assert.False(t, errors.Is(err, ErrInvalidVersionInput))
}

func TestValidateVersion_BadCurrentVersionExplicitInput(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("2.0.0", Package{Version: "banana"}, Options{})
	_, err := steps[0].Action(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `computing new version from "banana"`)
	assert.False(t, errors.Is(err, ErrVersionNotGreater))
	assert.False(t, errors.Is(err, ErrInvalidVersionInput))
}

func TestValidateVersion_InvalidPreID(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("premajor", Package{Version: "1.2.3"}, Options{PreID: "beta!"})
	state, err := steps[0].Action(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid pre-release identifier "beta!"`)
	assert.False(t, errors.Is(err, ErrVersionNotGreater))
	assert.Empty(t, state.NewVersion)
}

func TestValidateVersion_PreIDSortingLower(t *testing.T) {
	c, _ := newChecker(t)

	steps := c.Steps("prerelease", Package{Version: "1.2.4-beta.1"}, Options{PreID: "alpha"})
	_, err := steps[0].Action(context.Background(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionNotGreater)

	var nge *VersionNotGreaterError
	require.True(t, errors.As(err, &nge))
	assert.Equal(t, "1.2.4-alpha.0", nge.New)
	assert.Equal(t, "1.2.4-beta.1", nge.Current)
}

// --- Step 2 ---

func TestCheckPrerelease(t *testing.T) {
	tests := []struct {
		name    string
		version string
		pkg     Package
		opts    Options
		wantErr bool
	}{
		{"prerelease without tag", "2.0.0-0", Package{}, Options{Publish: true}, true},
		{"prerelease with tag", "2.0.0-0", Package{}, Options{Publish: true, Tag: "next"}, false},
		{"private prerelease", "2.0.0-0", Package{Private: true}, Options{Publish: true}, false},
		{"stable release", "2.0.0", Package{}, Options{Publish: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newChecker(t)
			steps := c.Steps("major", tt.pkg, tt.opts)

			_, err := steps[1].Action(context.Background(), State{NewVersion: tt.version})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingDistTag)
				assert.Contains(t, err.Error(), "--tag")
				assert.Contains(t, err.Error(), "https://docs.npmjs.com/cli/dist-tag")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStepsRequireComputedVersion(t *testing.T) {
	c, _ := newChecker(t)
	steps := c.Steps("patch", Package{Version: "1.2.3"}, Options{Publish: true})

	_, err := steps[1].Action(context.Background(), State{})
	assert.ErrorIs(t, err, errNoVersion)

	// The runner has no expectations, so git must not be invoked either.
	_, err = steps[2].Action(context.Background(), State{})
	assert.ErrorIs(t, err, errNoVersion)
}

// --- Step 3 ---

func TestCheckTag_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		query   proc.Result
		wantErr error
		msg     string
	}{
		{
			name:    "tag exists",
			query:   proc.Result{ExitCode: 0, Stdout: "refs/tags/v2.0.0"},
			wantErr: ErrTagExists,
			msg:     "Git tag `v2.0.0` already exists.",
		},
		{
			name:  "tag absent",
			query: proc.Result{ExitCode: 1},
		},
		{
			name:    "query failed",
			query:   proc.Result{ExitCode: 1, Stderr: "fatal: bad revision"},
			wantErr: ErrQueryFailed,
			msg:     "fatal: bad revision",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, runner := newChecker(t)
			gomock.InOrder(
				expectFetch(runner, proc.Result{}, nil),
				expectTagQuery(runner, "v2.0.0", tt.query),
			)

			steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
			_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCheckTag_TagExistsDetails(t *testing.T) {
	c, runner := newChecker(t)
	expectFetch(runner, proc.Result{}, nil)
	expectTagQuery(runner, "v2.0.0", proc.Result{Stdout: "3f2a9c1"})

	steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
	_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})

	var tagErr *TagExistsError
	require.True(t, errors.As(err, &tagErr))
	assert.Equal(t, "v2.0.0", tagErr.Tag)
	assert.Equal(t, "3f2a9c1", tagErr.Ref)
}

func TestCheckTag_QueryErrorKeepsDiagnostic(t *testing.T) {
	c, runner := newChecker(t)
	expectFetch(runner, proc.Result{}, nil)
	expectTagQuery(runner, "v2.0.0", proc.Result{ExitCode: 128, Stderr: "fatal: not a git repository (or any of the parent directories): .git"})

	steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
	_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "fatal: not a git repository (or any of the parent directories): .git", qe.Diagnostic)
	assert.Equal(t,
		"git rev-parse --quiet --verify refs/tags/v2.0.0: fatal: not a git repository (or any of the parent directories): .git",
		err.Error())
}

func TestCheckTag_QueryRunnerError(t *testing.T) {
	c, runner := newChecker(t)
	boom := errors.New("signal: killed")
	expectFetch(runner, proc.Result{}, nil)
	runner.EXPECT().Run(gomock.Any(), "", "git", "rev-parse", "--quiet", "--verify", "refs/tags/v2.0.0").
		Return(proc.Result{}, boom)

	steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
	_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, boom)
}

func TestCheckTag_FetchFailureSkipsQuery(t *testing.T) {
	c, runner := newChecker(t)
	// No tag query is expected; gomock fails the test if one is issued.
	expectFetch(runner, proc.Result{ExitCode: 128, Stderr: "fatal: could not read from remote repository"}, nil)

	steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
	_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.False(t, errors.Is(err, ErrQueryFailed))
	assert.Contains(t, err.Error(), "fatal: could not read from remote repository")

	var exitErr *proc.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 128, exitErr.Result.ExitCode)
}

func TestCheckTag_CustomPrefix(t *testing.T) {
	c, runner := newChecker(t, WithTagPrefix("release-"))
	expectFetch(runner, proc.Result{}, nil)
	expectTagQuery(runner, "release-2.0.0", proc.Result{ExitCode: 1})

	steps := c.Steps("2.0.0", Package{Version: "1.0.0"}, Options{})
	_, err := steps[2].Action(context.Background(), State{NewVersion: "2.0.0"})
	assert.NoError(t, err)
	assert.Equal(t, "release-2.0.0", c.TagName("2.0.0"))
}

// --- Pipeline ---

func TestRun_EndToEnd(t *testing.T) {
	c, runner := newChecker(t)
	gomock.InOrder(
		expectFetch(runner, proc.Result{}, nil),
		expectTagQuery(runner, "v1.3.0", proc.Result{ExitCode: 1}),
	)

	opts := Options{Publish: false}
	steps := c.Steps("minor", Package{Version: "1.2.3"}, opts)
	state, report, err := Run(context.Background(), steps, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", state.NewVersion)

	require.Len(t, report.Results, 3)
	assert.Equal(t, tasklist.StatusSucceeded, report.Results[0].Status)
	assert.Equal(t, tasklist.StatusSkipped, report.Results[1].Status)
	assert.Equal(t, tasklist.StatusSucceeded, report.Results[2].Status)
}

func TestRun_PrereleaseSkippedWhenNotPublishing(t *testing.T) {
	c, runner := newChecker(t)
	expectFetch(runner, proc.Result{}, nil)
	expectTagQuery(runner, "v2.0.0-0", proc.Result{ExitCode: 1})

	opts := Options{Publish: false}
	steps := c.Steps("premajor", Package{Version: "1.2.3"}, opts)
	state, _, err := Run(context.Background(), steps, opts)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-0", state.NewVersion)
}

func TestRun_InvalidInputStopsPipeline(t *testing.T) {
	// No runner expectations: steps 2 and 3 must not run.
	c, _ := newChecker(t)

	opts := Options{Publish: true}
	steps := c.Steps("sideways", Package{Version: "1.2.3"}, opts)
	state, report, err := Run(context.Background(), steps, opts)
	assert.ErrorIs(t, err, ErrInvalidVersionInput)
	assert.Empty(t, state.NewVersion)
	assert.Equal(t, tasklist.StatusFailed, report.Results[0].Status)
	assert.Equal(t, tasklist.StatusPending, report.Results[1].Status)
	assert.Equal(t, tasklist.StatusPending, report.Results[2].Status)
}

func TestRun_MissingDistTagStopsBeforeGit(t *testing.T) {
	c, _ := newChecker(t)

	opts := Options{Publish: true}
	steps := c.Steps("prerelease", Package{Version: "1.2.3"}, opts)
	_, report, err := Run(context.Background(), steps, opts)
	assert.ErrorIs(t, err, ErrMissingDistTag)
	assert.Equal(t, tasklist.StatusPending, report.Results[2].Status)
}

func TestRun_PublishPrereleaseWithTag(t *testing.T) {
	c, runner := newChecker(t)
	expectFetch(runner, proc.Result{}, nil)
	expectTagQuery(runner, "v1.2.4-0", proc.Result{ExitCode: 1})

	opts := Options{Publish: true, Tag: "next"}
	steps := c.Steps("prerelease", Package{Version: "1.2.3"}, opts)
	state, report, err := Run(context.Background(), steps, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4-0", state.NewVersion)
	assert.True(t, report.Succeeded())
}
