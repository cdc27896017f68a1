package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DeusData/local-system-mcp/internal/sysinfo"
	"github.com/DeusData/local-system-mcp/internal/textfile"
	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// URLSource reports the public URL of the server, empty when there is none.
type URLSource interface {
	PublicURL() string
}

// Options tune a Server. The zero value is usable.
type Options struct {
	Version     string
	Tunnel      URLSource     // optional
	CPUInterval time.Duration // CPU sampling window for get_system_stats
	DiskPath    string        // filesystem reported by get_system_stats
}

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp       *mcp.Server
	workspace *workspace.Workspace
	reader    *textfile.Reader
	opts      Options
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(ws *workspace.Workspace, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.CPUInterval == 0 {
		opts.CPUInterval = sysinfo.CPUSampleInterval
	}
	if opts.DiskPath == "" {
		opts.DiskPath = "/"
	}

	srv := &Server{
		workspace: ws,
		reader:    textfile.NewReader(),
		opts:      opts,
	}
	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "local-system-mcp",
			Version: opts.Version,
		},
		&mcp.ServerOptions{Instructions: srv.instructions()},
	)
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) instructions() string {
	msg := fmt.Sprintf("Local system tools scoped to the workspace %s. Paths are relative to it.", s.workspace.Root())
	if s.opts.Tunnel != nil {
		if u := s.opts.Tunnel.PublicURL(); u != "" {
			msg += " Public endpoint: " + u + "/sse"
		}
	}
	return msg
}

func (s *Server) registerTools() {
	// 1. get_system_stats
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_system_stats",
		Description: "Returns current CPU, memory and disk usage percentages of the host.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGetSystemStats)

	// 2. list_workspace_files
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_workspace_files",
		Description: "Lists the entries of a directory in the workspace (one level, unfiltered).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Directory relative to the workspace root (default '.')"
				}
			}
		}`),
	}, s.handleListWorkspaceFiles)

	// 3. read_file
	s.mcp.AddTool(&mcp.Tool{
		Name:        "read_file",
		Description: "Reads the contents of a text file in the workspace. Files above 15MB and binary files are refused.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_path": {
					"type": "string",
					"description": "File path relative to the workspace root"
				}
			},
			"required": ["file_path"]
		}`),
	}, s.handleReadFile)

	// 4. search_files
	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_files",
		Description: "Search for files by name pattern in the workspace. Case-insensitive substring match on the file name, recursive.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Substring to look for in file names (e.g. 'test', '.go')"
				},
				"path": {
					"type": "string",
					"description": "Directory to search from, relative to the workspace root (default '.')"
				}
			},
			"required": ["pattern"]
		}`),
	}, s.handleSearchFiles)

	// 5. get_project_structure
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_project_structure",
		Description: "Returns a tree view of the workspace, three levels deep, skipping hidden entries and cache/VCS/virtualenv directories.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGetProjectStructure)

	// 6. analyze_project_dependencies
	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_project_dependencies",
		Description: "Summarises requirements.txt, pyproject.toml, package.json, go.mod, Dockerfile and docker-compose.yml in the workspace root.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleAnalyzeProjectDependencies)

	// 7. find_code_patterns
	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_code_patterns",
		Description: "Search for regex matches line by line in workspace files (case-insensitive). Scans at most 300 files in sorted order and lists the first 100 matches.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Regular expression to search for (e.g. 'TODO', 'func\\s+New')"
				},
				"file_types": {
					"type": "string",
					"description": "Comma separated file globs, matched at any depth (default '*', e.g. '*.py,*.go')"
				}
			},
			"required": ["pattern"]
		}`),
	}, s.handleFindCodePatterns)

	// 8. get_git_status
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_git_status",
		Description: "Get git repository status, the 5 most recent commits and the current branch.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGetGitStatus)

	// 9. analyze_file_complexity
	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_file_complexity",
		Description: "Analyze complexity and structure metrics (line categories, functions, types, imports, control-flow keywords) for a text/code file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_path": {
					"type": "string",
					"description": "File path relative to the workspace root"
				}
			},
			"required": ["file_path"]
		}`),
	}, s.handleAnalyzeFileComplexity)
}

// textResult returns a plain text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// getStringArg extracts a string argument, falling back to def when absent.
func getStringArg(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// requireStringArg extracts a mandatory string argument. An empty string is
// a valid value; only a missing or non-string one is rejected.
func requireStringArg(args map[string]any, key string) (string, *mcp.CallToolResult) {
	v, ok := args[key]
	if !ok {
		return "", errResult(fmt.Sprintf("Error: missing required argument %q.", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", errResult(fmt.Sprintf("Error: argument %q must be a string.", key))
	}
	return s, nil
}
