package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/complexity"
	"github.com/DeusData/local-system-mcp/internal/search"
	"github.com/DeusData/local-system-mcp/internal/textfile"
	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxListedNames caps the function and type names shown per report.
const maxListedNames = 10

func (s *Server) handleFindCodePatterns(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	pattern, missing := requireStringArg(args, "pattern")
	if missing != nil {
		return missing, nil
	}
	fileTypes := getStringArg(args, "file_types", "*")

	sc := &search.Scanner{Root: s.workspace.Root(), Reader: s.reader, MaxFiles: search.MaxScannedFiles}
	res, err := sc.Scan(pattern, search.ParseGlobs(fileTypes))
	if err != nil {
		return errResult("Error searching patterns: " + err.Error()), nil
	}
	if len(res.Matches) == 0 {
		return textResult("No matches found for pattern: " + pattern), nil
	}
	return textResult(renderMatches(pattern, res.Matches)), nil
}

func renderMatches(pattern string, matches []search.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches for '%s':\n\n", len(matches), pattern)
	for i, m := range matches {
		if i == search.MaxDisplayedMatches {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s:%d: %s", m.Path, m.Line, strings.TrimSpace(m.Text))
	}
	return b.String()
}

func (s *Server) handleAnalyzeFileComplexity(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	filePath, missing := requireStringArg(args, "file_path")
	if missing != nil {
		return missing, nil
	}

	target, err := s.workspace.Resolve(filePath)
	if err != nil {
		return s.pathErr(err, "Error analyzing file: "), nil
	}

	rep, err := complexity.File(s.reader, target)
	switch {
	case err == nil:
		return textResult(renderComplexity(filePath, rep)), nil
	case errors.Is(err, workspace.ErrNotFound):
		return errResult("File not found: " + filePath), nil
	case errors.Is(err, workspace.ErrIsDirectory):
		return errResult(fmt.Sprintf("Error: %s is a directory, not a file.", filePath)), nil
	case errors.Is(err, textfile.ErrBinary):
		return errResult(fmt.Sprintf("Error: File %s appears to be binary. Complexity analysis supports text/code files.", filePath)), nil
	default:
		return errResult("Error analyzing file: " + err.Error()), nil
	}
}

func renderComplexity(filePath string, rep *complexity.Report) string {
	out := []string{
		"📊 CODE ANALYSIS: " + filePath,
		strings.Repeat("=", 50),
		fmt.Sprintf("📏 Lines: %d total, %d code, %d comments, %d empty",
			rep.TotalLines, rep.CodeLines, rep.CommentLines, rep.EmptyLines),
	}

	out = append(out, fmt.Sprintf("🔧 Functions: %d", len(rep.Functions)))
	out = appendNames(out, rep.Functions)
	out = append(out, fmt.Sprintf("🏗️  Types: %d", len(rep.Types)))
	out = appendNames(out, rep.Types)

	out = append(out,
		fmt.Sprintf("📦 Import statements: %d", rep.Imports),
		fmt.Sprintf("🔁 Loop keywords: %d", rep.Loops),
		fmt.Sprintf("🔀 Conditional keywords: %d", rep.Conditionals),
		fmt.Sprintf("🛡️  Error-handling keywords: %d", rep.ErrorHandling),
		fmt.Sprintf("🔄 Nested-loop hints: %d", rep.NestedLoops),
	)
	return strings.Join(out, "\n")
}

func appendNames(out, names []string) []string {
	if len(names) == 0 {
		return out
	}
	shown := names
	if len(shown) > maxListedNames {
		shown = shown[:maxListedNames]
	}
	out = append(out, "  "+strings.Join(shown, ", "))
	if len(names) > maxListedNames {
		out = append(out, fmt.Sprintf("  ... and %d more", len(names)-maxListedNames))
	}
	return out
}
