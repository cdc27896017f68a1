package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/deps"
	"github.com/DeusData/local-system-mcp/internal/gitinfo"
	"github.com/DeusData/local-system-mcp/internal/sysinfo"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxListedDeps caps how many entries of one manifest are listed.
const maxListedDeps = 20

func (s *Server) handleGetSystemStats(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := sysinfo.Collect(ctx, s.opts.CPUInterval, s.opts.DiskPath)
	if err != nil {
		return errResult("Error getting system stats: " + err.Error()), nil
	}
	return textResult(stats.String()), nil
}

func (s *Server) handleAnalyzeProjectDependencies(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := deps.Analyze(s.workspace.Root())
	if err != nil {
		return errResult("Error analyzing dependencies: " + err.Error()), nil
	}
	return textResult(renderDeps(sum)), nil
}

func renderDeps(sum *deps.Summary) string {
	out := []string{"📦 PROJECT DEPENDENCIES ANALYSIS", strings.Repeat("=", 50)}

	if sum.Requirements != nil {
		out = append(out, "\n🔍 requirements.txt:")
		out = appendCapped(out, sum.Requirements)
	}
	if f := sum.Pyproject; f != nil {
		out = append(out, "\n🔍 pyproject.toml:")
		if f.Runtime {
			out = append(out, "  • Has dependencies defined")
		}
		if f.Dev {
			out = append(out, "  • Has dev dependencies")
		}
	}
	if f := sum.PackageJSON; f != nil {
		out = append(out, "\n🔍 package.json:")
		if f.Runtime {
			out = append(out, "  • Has npm dependencies")
		}
		if f.Dev {
			out = append(out, "  • Has dev dependencies")
		}
	}
	if m := sum.GoModule; m != nil {
		out = append(out, "\n🔍 go.mod:")
		if m.Path != "" {
			out = append(out, "  module "+m.Path)
		}
		out = appendCapped(out, m.Requires)
	}
	if d := sum.Dockerfile; d != nil {
		out = append(out, "\n🐳 Docker: Dockerfile found")
		for _, img := range d.Images {
			out = append(out, "  • FROM "+img)
		}
		if len(d.Ports) > 0 {
			out = append(out, "  • EXPOSE "+strings.Join(d.Ports, " "))
		}
	}
	if c := sum.Compose; c != nil {
		out = append(out, "🐳 Docker: docker-compose.yml found")
		for _, svc := range c.Services {
			line := "  • service: " + svc.Name
			if svc.Image != "" {
				line += " (" + svc.Image + ")"
			}
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func appendCapped(out, items []string) []string {
	for i, item := range items {
		if i == maxListedDeps {
			return append(out, fmt.Sprintf("  ... and %d more", len(items)-maxListedDeps))
		}
		out = append(out, "  • "+item)
	}
	return out
}

func (s *Server) handleGetGitStatus(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := gitinfo.Inspect(s.workspace.Root(), gitinfo.DefaultCommitLimit)
	if errors.Is(err, gitinfo.ErrNotRepository) {
		return textResult("Not a git repository or git not installed"), nil
	}
	if err != nil {
		return errResult("Error getting git status: " + err.Error()), nil
	}
	return textResult(renderGitStatus(st)), nil
}

func renderGitStatus(st *gitinfo.Status) string {
	out := []string{"🔍 GIT REPOSITORY STATUS", strings.Repeat("=", 40)}

	if len(st.Changes) > 0 {
		out = append(out, "\n📝 Changed files:")
		for _, c := range st.Changes {
			out = append(out, "  "+c)
		}
	} else {
		out = append(out, "\n✅ Working directory clean")
	}

	if len(st.Commits) > 0 {
		out = append(out, "\n📜 Recent commits:")
		for _, c := range st.Commits {
			out = append(out, "  "+c)
		}
	}

	if st.Branch != "" {
		out = append(out, "\n🌿 Current branch: "+st.Branch)
	}
	return strings.Join(out, "\n")
}
