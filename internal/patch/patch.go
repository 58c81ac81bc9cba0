// Package patch models a unified diff as, per file, the set of added line
// ranges plus their after-image source content. It is used by pipeline
// (parsing the patch under review) and classify (in_patch / hash
// source-line lookup); the clang-format parser in analyzer reads its
// artifact with go-diff directly and does not use this package.
package patch

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileHunks is the per-file view of a unified patch: which new-file line
// numbers were added, and what source text ended up on each.
type FileHunks struct {
	Added  map[int]struct{}
	Source map[int]string
}

type Patch struct {
	Files map[string]*FileHunks
}

// Parse builds a Patch from a unified-diff byte stream produced by the
// external patch-applier (out of scope per spec.md §1).
func Parse(unified []byte) (*Patch, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(unified)
	if err != nil {
		return nil, fmt.Errorf("parse unified diff: %w", err)
	}

	p := &Patch{Files: make(map[string]*FileHunks)}
	for _, fd := range fileDiffs {
		path := normalizePath(fd.NewName)
		if path == "" {
			path = normalizePath(fd.OrigName)
		}
		if path == "" || path == "/dev/null" {
			continue
		}

		fh := &FileHunks{Added: make(map[int]struct{}), Source: make(map[int]string)}
		for _, h := range fd.Hunks {
			newLine := h.NewStartLine
			scanner := bufio.NewScanner(bytes.NewReader(h.Body))
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					newLine++
					continue
				}
				switch line[0] {
				case '+':
					content := strings.TrimSpace(line[1:])
					fh.Added[int(newLine)] = struct{}{}
					fh.Source[int(newLine)] = content
					newLine++
				case '-':
					// removed line: consumes an orig line only, new line unchanged
				case '\\':
					// "\ No newline at end of file" marker, ignore
				default:
					newLine++
				}
			}
		}
		p.Files[path] = fh
	}
	return p, nil
}

func normalizePath(name string) string {
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// FileModified reports whether path appears in the patch at all.
func (p *Patch) FileModified(path string) bool {
	_, ok := p.Files[path]
	return ok
}

// InRange reports whether any line in [line, line+nbLines-1] is an added
// line of path.
func (p *Patch) InRange(path string, line, nbLines int) bool {
	fh, ok := p.Files[path]
	if !ok {
		return false
	}
	if nbLines < 1 {
		nbLines = 1
	}
	for l := line; l < line+nbLines; l++ {
		if _, ok := fh.Added[l]; ok {
			return true
		}
	}
	return false
}

// SourceLine returns the after-image source text at (path, line), if the
// patch added that line; ok is false otherwise (caller falls back to "-").
func (p *Patch) SourceLine(path string, line int) (string, bool) {
	fh, ok := p.Files[path]
	if !ok {
		return "", false
	}
	s, ok := fh.Source[line]
	return s, ok
}
