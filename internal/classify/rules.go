package classify

import (
	"github.com/mozilla/code-review/internal/analyzer"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/patch"
)

// ClassifiedIssue is a RawIssue enriched with the derived flags of
// spec.md §4.3.
type ClassifiedIssue struct {
	analyzer.RawIssue
	Hash           string
	InPatch        bool
	NewForRevision bool
	Publishable    bool
}

// InPatch implements the §4.3 rule: true iff the file appears in the patch
// and at least one issue line lies in an added hunk; file-level issues
// (line = nil) use file membership only.
func InPatch(raw analyzer.RawIssue, p *patch.Patch) bool {
	if p == nil {
		return false
	}
	if raw.Line == nil {
		return p.FileModified(raw.Path)
	}
	nbLines := raw.NbLines
	if nbLines < 1 {
		nbLines = 1
	}
	return p.InRange(raw.Path, *raw.Line, nbLines)
}

// NewForRevision is true iff hash does not appear among the hashes
// previously observed on prior diffs of the same revision.
func NewForRevision(hash string, priorHashes map[string]struct{}) bool {
	if priorHashes == nil {
		return true
	}
	_, seen := priorHashes[hash]
	return !seen
}

// Classify enriches raw into a ClassifiedIssue using the current diff's
// patch and the revision's prior hash set.
func Classify(raw analyzer.RawIssue, repoSlug string, p *patch.Patch, priorHashes map[string]struct{}) ClassifiedIssue {
	hash := Hash(raw, repoSlug, p)
	inPatch := InPatch(raw, p)
	newForRevision := NewForRevision(hash, priorHashes)

	return ClassifiedIssue{
		RawIssue:       raw,
		Hash:           hash,
		InPatch:        inPatch,
		NewForRevision: newForRevision,
		Publishable:    domain.Publishable(raw.Level, inPatch, newForRevision),
	}
}

// Synthetic builds the pipeline-analyzer issue that lifts a task-level
// error into a publishable finding, per spec.md §4.3 and §7.
func Synthetic(check, message string) ClassifiedIssue {
	raw := analyzer.RawIssue{
		Path:     "-",
		NbLines:  1,
		Check:    check,
		Analyzer: "pipeline",
		Level:    domain.LevelError,
		Message:  message,
	}
	return ClassifiedIssue{
		RawIssue:       raw,
		Hash:           Hash(raw, "-", nil),
		InPatch:        false,
		NewForRevision: true,
		Publishable:    true,
	}
}
