// Package analyzer converts a CI task's artifact(s) into RawIssue records
// using a dispatch table keyed by task-name prefix only; a task's declared
// artifact paths play no part in choosing the parser. Parsers never raise
// across the artifact boundary (P5): malformed
// records are skipped and reported as Diagnostics instead.
package analyzer

import "github.com/mozilla/code-review/internal/domain"

// RawIssue is the parser's output, before classification assigns hash,
// in_patch, new_for_revision and publishable.
type RawIssue struct {
	Path     string
	Line     *int
	NbLines  int
	Column   int
	Check    string
	Analyzer string
	Level    domain.Level
	Message  string
	Body     string
}

// Diagnostic records a malformed record a parser chose to skip rather than
// fail on. It never crosses the artifact boundary as an error.
type Diagnostic struct {
	Reason string
}

// Kind tags which parser variant handled a task, used for logging only.
type Kind string

const (
	KindClangTidy   Kind = "clang-tidy"
	KindClangFormat Kind = "clang-format"
	KindMozlint     Kind = "mozlint"
	KindDefault     Kind = "default"
)

// ParseFunc parses one artifact's bytes for a task named taskName into raw
// issues plus any diagnostics for malformed records. It must never panic.
type ParseFunc func(taskName string, data []byte) ([]RawIssue, []Diagnostic, error)

// Dispatch resolves the Kind for a task by name prefix, matching
// spec.md §4.2's dispatch-table rule. Order matters: more specific
// prefixes are checked first.
func Dispatch(taskName string) Kind {
	switch {
	case hasAnyPrefix(taskName, "source-test-clang-tidy"):
		return KindClangTidy
	case hasAnyPrefix(taskName, "source-test-clang-format"):
		return KindClangFormat
	case hasAnyPrefix(taskName, "source-test-mozlint"):
		return KindMozlint
	default:
		return KindDefault
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// Parsers maps each Kind to its ParseFunc. New analyzers that use the
// default format never need an entry here.
var Parsers = map[Kind]ParseFunc{
	KindClangTidy:   ParseClangTidy,
	KindClangFormat: ParseClangFormat,
	KindMozlint:     ParseMozlint,
	KindDefault:     ParseDefault,
}

// Parse runs the dispatched parser for taskName, recovering from any panic
// so a single malformed artifact can never abort the run (P5).
func Parse(taskName string, data []byte) (issues []RawIssue, diags []Diagnostic, err error) {
	kind := Dispatch(taskName)
	fn := Parsers[kind]

	defer func() {
		if r := recover(); r != nil {
			issues = nil
			diags = []Diagnostic{{Reason: "parser panic recovered"}}
			err = nil
		}
	}()

	return fn(taskName, data)
}

func intPtr(v int) *int { return &v }
