package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const mcpServerKey = "local-system-mcp"

// stdioArgs start the server the way editors expect: over stdio, no tunnel.
var stdioArgs = []string{"--transport", "stdio", "--no-tunnel"}

// editor is an MCP client that reads a JSON config with an "mcpServers" map.
type editor struct {
	name string
	path string
}

func editors() []editor {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []editor{
		{"Cursor", filepath.Join(home, ".cursor", "mcp.json")},
		{"Windsurf", filepath.Join(home, ".codeium", "windsurf", "mcp_config.json")},
	}
}

func newRegisterCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add this server (stdio mode) to the Cursor and Windsurf MCP configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin, err := detectBinaryPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "local-system-mcp %s: register\nBinary: %s\n\n", version, bin)
			for _, e := range editors() {
				upsertEditorMCP(out, e, bin, dryRun)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would change")
	return cmd
}

func newUnregisterCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Remove this server from the Cursor and Windsurf MCP configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, e := range editors() {
				removeEditorMCP(out, e, dryRun)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would change")
	return cmd
}

// detectBinaryPath resolves the current binary's real path.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

// readEditorConfig returns the parsed config and its mcpServers map. A missing
// or invalid file yields empty maps.
func readEditorConfig(path string) (root, servers map[string]any, existed bool) {
	root = make(map[string]any)
	data, err := os.ReadFile(path)
	if err == nil {
		existed = true
		if json.Unmarshal(data, &root) != nil {
			root = make(map[string]any)
		}
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	return root, servers, existed
}

func writeEditorConfig(path string, root map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// upsertEditorMCP adds or replaces our entry, keeping every other server.
func upsertEditorMCP(out io.Writer, e editor, binaryPath string, dryRun bool) {
	fmt.Fprintf(out, "[%s] MCP config: %s\n", e.name, e.path)
	if dryRun {
		fmt.Fprintf(out, "  [dry-run] Would upsert %s\n", mcpServerKey)
		return
	}

	root, servers, _ := readEditorConfig(e.path)
	servers[mcpServerKey] = map[string]any{
		"command": binaryPath,
		"args":    stdioArgs,
	}
	root["mcpServers"] = servers

	if err := writeEditorConfig(e.path, root); err != nil {
		fmt.Fprintf(out, "  ⚠ write %s: %v\n", e.path, err)
		return
	}
	fmt.Fprintln(out, "  ✓ registered")
}

// removeEditorMCP drops our entry. Files without it are left untouched.
func removeEditorMCP(out io.Writer, e editor, dryRun bool) {
	root, servers, existed := readEditorConfig(e.path)
	if !existed {
		return
	}
	if _, ok := servers[mcpServerKey]; !ok {
		return
	}

	fmt.Fprintf(out, "[%s] MCP config: %s\n", e.name, e.path)
	if dryRun {
		fmt.Fprintf(out, "  [dry-run] Would remove %s\n", mcpServerKey)
		return
	}

	delete(servers, mcpServerKey)
	root["mcpServers"] = servers
	if err := writeEditorConfig(e.path, root); err != nil {
		fmt.Fprintf(out, "  ⚠ write %s: %v\n", e.path, err)
		return
	}
	fmt.Fprintln(out, "  ✓ removed")
}
