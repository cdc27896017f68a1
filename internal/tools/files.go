package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/discover"
	"github.com/DeusData/local-system-mcp/internal/textfile"
	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const accessDeniedMsg = "Error: Access denied to paths outside workspace."

func (s *Server) handleListWorkspaceFiles(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path := getStringArg(args, "path", ".")

	target, err := s.workspace.Resolve(path)
	if err != nil {
		return s.pathErr(err, "Error listing files: "), nil
	}

	names, err := discover.ListChildren(target)
	switch {
	case err == nil:
		return textResult(strings.Join(names, "\n")), nil
	case errors.Is(err, discover.ErrEmpty):
		return textResult(fmt.Sprintf("Directory %s is empty.", path)), nil
	case errors.Is(err, workspace.ErrNotFound):
		return errResult(fmt.Sprintf("Error: Path %s does not exist.", path)), nil
	default:
		return errResult("Error listing files: " + err.Error()), nil
	}
}

func (s *Server) handleReadFile(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
		return s.pathErr(err, "Error reading file: "), nil
	}

	doc, err := s.reader.Read(target)
	if err != nil {
		return errResult(readErrMsg(filePath, err)), nil
	}
	slog.Debug("read_file.ok", "path", filePath, "bytes", doc.Size,
		"encoding", doc.Encoding, "xxh3", fmt.Sprintf("%016x", doc.Digest))
	return textResult(doc.Text), nil
}

// readErrMsg renders a textfile.Reader failure for read_file.
func readErrMsg(filePath string, err error) string {
	var tooLarge *textfile.TooLargeError
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return fmt.Sprintf("Error: File %s does not exist.", filePath)
	case errors.Is(err, workspace.ErrIsDirectory):
		return fmt.Sprintf("Error: %s is a directory, not a file.", filePath)
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("Error: File %s is too large (%d bytes). Limit is 15MB.", filePath, tooLarge.Size)
	case errors.Is(err, textfile.ErrBinary):
		return fmt.Sprintf("Error: File %s appears to be binary and cannot be displayed as text.", filePath)
	case errors.Is(err, textfile.ErrDecode):
		return fmt.Sprintf("Error: File %s could not be decoded as text.", filePath)
	default:
		return "Error reading file: " + err.Error()
	}
}

func (s *Server) handleSearchFiles(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	pattern, missing := requireStringArg(args, "pattern")
	if missing != nil {
		return missing, nil
	}
	path := getStringArg(args, "path", ".")

	target, err := s.workspace.Resolve(path)
	if err != nil {
		return s.pathErr(err, "Error searching files: "), nil
	}

	matches, err := discover.FindByName(s.workspace.Root(), target, pattern)
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return errResult(fmt.Sprintf("Error: Path %s does not exist.", path)), nil
	case err != nil:
		return errResult("Error searching files: " + err.Error()), nil
	case len(matches) == 0:
		return textResult("No files found matching pattern: " + pattern), nil
	}
	return textResult(strings.Join(matches, "\n")), nil
}

func (s *Server) handleGetProjectStructure(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines, err := discover.RenderTree(s.workspace.Root(), discover.DefaultTreeDepth)
	if err != nil {
		return errResult("Error getting project structure: " + err.Error()), nil
	}
	return textResult(strings.Join(lines, "\n")), nil
}

// pathErr renders a workspace.Resolve failure. Anything other than an escape
// attempt is reported with the tool's generic prefix.
func (s *Server) pathErr(err error, prefix string) *mcp.CallToolResult {
	if errors.Is(err, workspace.ErrAccessDenied) {
		slog.Warn("workspace.denied", "root", s.workspace.Root(), "err", err)
		return errResult(accessDeniedMsg)
	}
	return errResult(prefix + err.Error())
}
