package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fsinv/internal/inv"
)

// IgnoreFileName is the per-root exclusion file read by LoadExcludes.
const IgnoreFileName = ".fsinvignore"

// exclusion is one compiled pattern. Rooted patterns are matched against the
// whole path relative to the scan root, the rest against the last element.
type exclusion struct {
	glob   string
	rooted bool
}

func (e exclusion) match(slashed, base string) bool {
	if e.rooted {
		ok, _ := filepath.Match(e.glob, slashed)
		return ok
	}
	ok, _ := filepath.Match(e.glob, base)
	return ok
}

// IgnoreMatcher decides which paths under a scan root are excluded.
//
//	*.iso          any entry whose name matches, at any depth
//	var/cache      a path relative to the root (contains '/')
//	/build         only the top-level "build"
//	node_modules/  same as node_modules; excluding a directory prunes it
type IgnoreMatcher struct {
	rules []exclusion
}

// NewIgnoreMatcher compiles patterns. Blank lines and '#' comments are
// skipped; a malformed glob is an error naming the pattern.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		p = strings.TrimSuffix(p, "/")
		rooted := strings.Contains(p, "/")
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		m.rules = append(m.rules, exclusion{glob: p, rooted: rooted})
	}
	return m, nil
}

// Len returns the number of compiled patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.rules)
}

// Match reports whether relativePath, relative to the scan root, is excluded.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.rules) == 0 {
		return false
	}
	slashed := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)
	for _, r := range m.rules {
		if r.match(slashed, base) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile returns the lines of an exclusion file, or nil when it
// does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}

// LoadExcludes compiles the configured patterns together with the scan root's
// .fsinvignore file, if present.
func LoadExcludes(root string, configured []string) (*IgnoreMatcher, error) {
	m, err := NewIgnoreMatcher(configured)
	if err != nil {
		return nil, fmt.Errorf("scan.exclude: %w", err)
	}

	path := filepath.Join(root, IgnoreFileName)
	lines, err := ParseIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	fromFile, err := NewIgnoreMatcher(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.rules = append(m.rules, fromFile.rules...)
	return m, nil
}

var _ inv.Excluder = (*IgnoreMatcher)(nil)
