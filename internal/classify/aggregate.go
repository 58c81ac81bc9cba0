package classify

import (
	"fmt"
	"sort"
)

// dedupKey identifies the identity collision rule of invariant I4:
// collisions on (hash, path, line, analyzer, check) are the same issue.
func dedupKey(c ClassifiedIssue) string {
	line := "nil"
	if c.Line != nil {
		line = fmt.Sprintf("%d", *c.Line)
	}
	return c.Hash + "\x1f" + c.Path + "\x1f" + line + "\x1f" + c.Analyzer + "\x1f" + c.Check
}

// Aggregate merges the whole task group's issues, collapsing duplicates by
// (hash, path, line, analyzer, check) and preserving the earliest
// observation (input order is assumed to reflect observation order), then
// sorts deterministically by (path, line, analyzer, check, hash) per P4.
func Aggregate(issues []ClassifiedIssue) []ClassifiedIssue {
	seen := make(map[string]struct{}, len(issues))
	out := make([]ClassifiedIssue, 0, len(issues))

	for _, c := range issues {
		key := dedupKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		al, bl := lineOrder(a.Line), lineOrder(b.Line)
		if al != bl {
			return al < bl
		}
		if a.Analyzer != b.Analyzer {
			return a.Analyzer < b.Analyzer
		}
		if a.Check != b.Check {
			return a.Check < b.Check
		}
		return a.Hash < b.Hash
	})

	return out
}

// lineOrder sorts file-level issues (line = nil) before any specific line.
func lineOrder(line *int) int {
	if line == nil {
		return -1
	}
	return *line
}
