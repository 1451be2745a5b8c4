package prereq

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alanmeadows/shipcheck/internal/version"
)

// Sentinels for each way a prerequisite check can fail. The typed errors
// below match them with errors.Is.
var (
	ErrInvalidVersionInput = errors.New("invalid version input")
	ErrVersionNotGreater   = errors.New("version not greater than current")
	ErrMissingDistTag      = errors.New(`You must specify a dist-tag using --tag when publishing a pre-release version. This prevents accidentally tagging unstable versions as "latest". https://docs.npmjs.com/cli/dist-tag`)
	ErrFetchFailed         = errors.New("fetch failed")
	ErrTagExists           = errors.New("tag already exists")
	ErrQueryFailed         = errors.New("tag query failed")
)

// InvalidVersionInputError reports a bump that is neither an increment
// keyword nor a valid version.
type InvalidVersionInputError struct {
	Input string
}

func (e *InvalidVersionInputError) Error() string {
	return fmt.Sprintf("Version should be either %s, or a valid semver version.", strings.Join(version.Increments, ", "))
}

func (e *InvalidVersionInputError) Is(target error) bool { return target == ErrInvalidVersionInput }

// VersionNotGreaterError reports a new version that does not exceed the
// current one.
type VersionNotGreaterError struct {
	Current string
	New     string
}

func (e *VersionNotGreaterError) Error() string {
	return fmt.Sprintf("New version `%s` should be higher than current version `%s`", e.New, e.Current)
}

func (e *VersionNotGreaterError) Is(target error) bool { return target == ErrVersionNotGreater }

// FetchError wraps a failed remote sync.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching remote tags: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// TagExistsError reports a release tag that is already present.
type TagExistsError struct {
	Tag string
	Ref string
}

func (e *TagExistsError) Error() string {
	return fmt.Sprintf("Git tag `%s` already exists.", e.Tag)
}

func (e *TagExistsError) Is(target error) bool { return target == ErrTagExists }

// QueryError reports a tag lookup that failed for a reason other than the
// tag being absent. Diagnostic holds git's output verbatim.
type QueryError struct {
	Tag        string
	Command    string
	Diagnostic string
	Err        error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checking tag %s: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Diagnostic)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQueryFailed }
