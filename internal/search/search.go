package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/discover"
	"github.com/DeusData/local-system-mcp/internal/textfile"
	"github.com/DeusData/local-system-mcp/internal/workspace"
)

const (
	// MaxScannedFiles caps how many text files one scan reads.
	MaxScannedFiles = 300
	// MaxDisplayedMatches caps how many matches a report lists.
	MaxDisplayedMatches = 100
)

// Match is one matching line.
type Match struct {
	Path string // relative to the scan root, slash separated
	Line int    // 1-based
	Text string // the full line, untrimmed
}

// Result holds every match found plus the number of files actually read.
type Result struct {
	Matches []Match
	Scanned int
}

// Scanner runs line-oriented regex searches under a root directory.
type Scanner struct {
	Root     string
	Reader   *textfile.Reader
	MaxFiles int
}

// NewScanner returns a Scanner over root with the default caps.
func NewScanner(root string) *Scanner {
	return &Scanner{Root: root, Reader: textfile.NewReader(), MaxFiles: MaxScannedFiles}
}

// ParseGlobs splits a comma separated glob list, defaulting to "*".
func ParseGlobs(fileTypes string) []string {
	var globs []string
	for _, g := range strings.Split(fileTypes, ",") {
		if g = strings.TrimSpace(g); g != "" {
			globs = append(globs, g)
		}
	}
	if len(globs) == 0 {
		return []string{"*"}
	}
	return globs
}

// Scan searches every candidate file matched by globs for lines matching
// pattern (case-insensitive, unanchored). Candidates are visited in sorted
// order and the scan stops once MaxFiles files have been read; files that
// are hidden, not regular, binary or unreadable are skipped and do not count.
// Symlinks resolving outside Root are skipped, and a file reachable through
// several links is read once, under the first path that reaches it.
func (s *Scanner) Scan(pattern string, globs []string) (*Result, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if len(globs) == 0 {
		globs = []string{"*"}
	}

	realRoot, err := filepath.EvalSymlinks(s.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	candidates, err := discover.ExpandGlobs(s.Root, globs)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	seen := make(map[string]bool)
	for _, rel := range candidates {
		if res.Scanned >= s.MaxFiles {
			break
		}
		if hasHiddenSegment(rel) {
			continue
		}
		resolved, evalErr := filepath.EvalSymlinks(filepath.Join(s.Root, filepath.FromSlash(rel)))
		if evalErr != nil || !workspace.Contains(realRoot, resolved) || seen[resolved] {
			continue
		}
		info, statErr := os.Stat(resolved)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[resolved] = true
		doc, readErr := s.Reader.Read(resolved)
		if readErr != nil {
			slog.Debug("search.skip", "path", rel, "err", readErr)
			continue
		}
		res.Scanned++

		for i, line := range strings.Split(doc.Text, "\n") {
			if re.MatchString(line) {
				res.Matches = append(res.Matches, Match{Path: rel, Line: i + 1, Text: line})
			}
		}
	}
	return res, nil
}

// hasHiddenSegment reports whether any component of a slash path starts with a dot.
func hasHiddenSegment(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
