package git

import (
	"strings"

	"github.com/alanmeadows/shipcheck/internal/proc"
)

// TagStatus is the outcome of a tag lookup.
type TagStatus int

const (
	// TagAbsent means git found no such tag and said nothing about it.
	TagAbsent TagStatus = iota
	// TagExists means the ref resolved.
	TagExists
	// TagQueryFailed means git failed and explained why; the tag's
	// existence is unknown.
	TagQueryFailed
)

func (s TagStatus) String() string {
	switch s {
	case TagAbsent:
		return "absent"
	case TagExists:
		return "exists"
	case TagQueryFailed:
		return "query-failed"
	default:
		return "unknown"
	}
}

// TagLookup is a classified tag query.
type TagLookup struct {
	Status TagStatus
	// Ref is the resolved object name when Status is TagExists.
	Ref string
	// Diagnostic is git's raw output when Status is TagQueryFailed.
	Diagnostic string
	// Result is the unclassified command outcome.
	Result proc.Result
}

// ClassifyTagQuery interprets the result of
// `git rev-parse --quiet --verify refs/tags/<name>`.
//
// --quiet does not stop rev-parse from exiting 1 for a missing ref, so a
// non-zero exit alone is not a failure. A missing tag is a non-zero exit
// with nothing on either stream; any output alongside a non-zero exit is a
// real error and is kept verbatim.
func ClassifyTagQuery(res proc.Result) TagLookup {
	lookup := TagLookup{Result: res}
	switch {
	case !res.Failed() && res.Stdout != "":
		lookup.Status = TagExists
		lookup.Ref = strings.TrimSpace(res.Stdout)
	case !res.Failed():
		lookup.Status = TagAbsent
	case !res.HasOutput():
		lookup.Status = TagAbsent
	default:
		lookup.Status = TagQueryFailed
		lookup.Diagnostic = joinOutput(res)
	}
	return lookup
}

func joinOutput(res proc.Result) string {
	var parts []string
	if s := strings.TrimSpace(res.Stdout); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}
