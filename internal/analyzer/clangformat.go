package analyzer

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/mozilla/code-review/internal/domain"
)

// ParseClangFormat decodes a unified-diff artifact describing formatting
// corrections; each hunk becomes one RawIssue tagged with its mode, per
// spec.md §4.2.
func ParseClangFormat(taskName string, data []byte) ([]RawIssue, []Diagnostic, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(data)
	if err != nil {
		return nil, []Diagnostic{{Reason: "clang-format artifact is not a valid unified diff: " + err.Error()}}, nil
	}

	var issues []RawIssue
	var diags []Diagnostic
	for _, fd := range fileDiffs {
		p := strings.TrimPrefix(fd.NewName, "a/")
		p = strings.TrimPrefix(p, "b/")
		if p == "" || p == "/dev/null" {
			diags = append(diags, Diagnostic{Reason: "clang-format hunk with no resolvable path"})
			continue
		}

		for _, h := range fd.Hunks {
			added := h.NewLines > 0
			removed := h.OrigLines > 0

			var mode string
			var line int
			var nbLines int
			switch {
			case added && removed:
				mode = "replace"
				line = int(h.NewStartLine)
				nbLines = int(h.NewLines)
			case added && !removed:
				mode = "insert"
				line = int(h.NewStartLine)
				nbLines = int(h.NewLines)
			case removed && !added:
				mode = "delete"
				line = int(h.OrigStartLine)
				nbLines = int(h.OrigLines)
			default:
				diags = append(diags, Diagnostic{Reason: "empty clang-format hunk for " + p})
				continue
			}
			if nbLines < 1 {
				nbLines = 1
			}

			issues = append(issues, RawIssue{
				Path:     p,
				Line:     intPtr(line),
				NbLines:  nbLines,
				Check:    mode,
				Analyzer: string(KindClangFormat),
				Level:    domain.LevelWarning,
				Message:  fmt.Sprintf("clang-format suggests a %s of %d line(s)", mode, nbLines),
			})
		}
	}
	return issues, diags, nil
}
