// Package complexity computes heuristic structure metrics for a source file.
// Everything here is regex based and language agnostic: counts are hints,
// not the output of a parser.
package complexity

import (
	"regexp"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/textfile"
)

// Report holds the metrics for one file.
type Report struct {
	TotalLines   int
	CodeLines    int
	CommentLines int
	EmptyLines   int

	Functions []string
	Types     []string

	Imports       int
	Loops         int
	Conditionals  int
	ErrorHandling int
	NestedLoops   int
}

var commentPrefixes = []string{"#", "//", "/*", "*", "--"}

// Patterns are applied in order and their matches concatenated; a name found
// by two patterns is listed twice.
var (
	functionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bdef\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`\bfunction\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`([A-Za-z_]\w*)\s*=\s*\([^)]*\)\s*=>`),
		regexp.MustCompile(`\bfunc\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`\bfn\s+([A-Za-z_]\w*)`),
	}
	typePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bclass\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`\binterface\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`\bstruct\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`\benum\s+([A-Za-z_]\w*)`),
	}

	importPattern = regexp.MustCompile(
		`(?m)^(?:\s*(?:from\s+\S+\s+import\s+.+|import\s+.+|#include\s+[<"].+[>"]|using\s+\S+|require\(.+\))).*$`)

	loopPattern        = regexp.MustCompile(`\b(for|while|do)\b`)
	conditionalPattern = regexp.MustCompile(`\b(if|else if|elif|switch|case)\b`)
	errorPattern       = regexp.MustCompile(`\b(try|catch|except|finally)\b`)
	// a loop whose braced body mentions the same loop keyword before the first }
	nestedLoopPattern = regexp.MustCompile(`(?s)\bfor\b[^{\n]*\{[^}]*\bfor\b|\bwhile\b[^{\n]*\{[^}]*\bwhile\b`)
)

// File reads path through r and analyzes it. Read errors (not found,
// directory, too large, binary, undecodable) are returned unchanged.
func File(r *textfile.Reader, path string) (*Report, error) {
	doc, err := r.Read(path)
	if err != nil {
		return nil, err
	}
	return Analyze(doc.Text), nil
}

// Analyze computes the metrics for content.
func Analyze(content string) *Report {
	rep := &Report{}

	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			rep.EmptyLines++
		case isComment(trimmed):
			rep.CommentLines++
		default:
			rep.CodeLines++
		}
		rep.TotalLines++
	}

	rep.Functions = collectNames(functionPatterns, content)
	rep.Types = collectNames(typePatterns, content)

	rep.Imports = count(importPattern, content)
	rep.Loops = count(loopPattern, content)
	rep.Conditionals = count(conditionalPattern, content)
	rep.ErrorHandling = count(errorPattern, content)
	rep.NestedLoops = count(nestedLoopPattern, content)
	return rep
}

// splitLines splits on \n. A final newline terminates the last line rather
// than starting an empty one.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isComment(trimmed string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func collectNames(patterns []*regexp.Regexp, content string) []string {
	var names []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			names = append(names, m[1])
		}
	}
	return names
}

func count(re *regexp.Regexp, content string) int {
	return len(re.FindAllStringIndex(content, -1))
}
