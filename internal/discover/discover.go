package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/bmatcuk/doublestar/v4"
)

// ErrEmpty is returned by ListChildren for a directory with no entries.
var ErrEmpty = errors.New("directory is empty")

// IGNORE_PATTERNS are directory names left out of the project tree.
// Hidden names are skipped separately.
var IGNORE_PATTERNS = map[string]bool{
	"__pycache__": true, ".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "bower_components": true, "site-packages": true,
	"venv": true, ".venv": true, ".mypy_cache": true, ".pytest_cache": true,
	".tox": true,
}

// DefaultTreeDepth is how many levels RenderTree shows by default.
const DefaultTreeDepth = 3

// shouldSkipTreeEntry returns true if the entry is hidden from the project tree.
func shouldSkipTreeEntry(name string) bool {
	return strings.HasPrefix(name, ".") || IGNORE_PATTERNS[name]
}

// ListChildren returns the names directly under dir, in directory order.
func ListChildren(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if workspace.IsMissing(err) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, workspace.ErrNotDirectory
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// Node is one entry of a project tree. Size is only meaningful when HasSize
// is set; Denied marks a directory whose listing was refused.
type Node struct {
	Name     string
	IsDir    bool
	Size     int64
	HasSize  bool
	Denied   bool
	Children []*Node
}

// BuildTree reads the tree under root, maxDepth levels deep, sorted by name
// at every level. Hidden entries and IGNORE_PATTERNS are left out. Levels
// past maxDepth are cut without a marker. Symlinks are never descended into;
// one whose target lies outside root is listed by name only.
func BuildTree(root string, maxDepth int) (*Node, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}
	n := &Node{Name: filepath.Base(root), IsDir: true}
	if err := fillDir(n, root, realRoot, maxDepth, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func fillDir(n *Node, dir, realRoot string, maxDepth, depth int) error {
	if depth >= maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			n.Denied = true
			return nil
		}
		return err
	}

	kept := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if !shouldSkipTreeEntry(e.Name()) {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name() < kept[j].Name() })

	for _, e := range kept {
		path := filepath.Join(dir, e.Name())
		child := &Node{Name: e.Name()}
		n.Children = append(n.Children, child)

		link := e.Type()&fs.ModeSymlink != 0
		if link && !LinkInside(realRoot, path) {
			continue
		}
		info, statErr := os.Stat(path)
		switch {
		case statErr != nil:
		case info.IsDir():
			child.IsDir = true
			if link {
				continue
			}
			if err := fillDir(child, path, realRoot, maxDepth, depth+1); err != nil {
				return err
			}
		default:
			child.Size, child.HasSize = info.Size(), true
		}
	}
	return nil
}

// LinkInside reports whether path, after following every symlink, still lies
// under realRoot. Dangling links report false.
func LinkInside(realRoot, path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	return err == nil && workspace.Contains(realRoot, resolved)
}

// RenderTree draws the directory tree under root, maxDepth levels deep.
func RenderTree(root string, maxDepth int) ([]string, error) {
	tree, err := BuildTree(root, maxDepth)
	if err != nil {
		return nil, err
	}
	return tree.Lines(), nil
}

// Lines renders n with box-drawing connectors under a "Project:" header.
func (n *Node) Lines() []string {
	lines := []string{"Project: " + n.Name, "/"}
	return appendChildren(lines, n, "")
}

func appendChildren(lines []string, n *Node, prefix string) []string {
	if n.Denied {
		return append(lines, prefix+"[Permission Denied]")
	}
	for i, child := range n.Children {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(n.Children)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		switch {
		case child.IsDir:
			lines = append(lines, prefix+connector+child.Name+"/")
			lines = appendChildren(lines, child, childPrefix)
		case child.HasSize:
			lines = append(lines, prefix+connector+child.Name+" ("+formatSize(child.Size)+")")
		default:
			lines = append(lines, prefix+connector+child.Name)
		}
	}
	return lines
}

// formatSize renders a byte count as whole B, KB or MB.
func formatSize(n int64) string {
	switch {
	case n > 1024*1024:
		return fmt.Sprintf("%dMB", n/1024/1024)
	case n > 1024:
		return fmt.Sprintf("%dKB", n/1024)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// FindByName walks dir recursively and returns files whose name contains
// pattern, case-insensitively. Paths are relative to base, in walk order.
// Unreadable subdirectories are skipped.
func FindByName(base, dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if workspace.IsMissing(err) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	needle := strings.ToLower(pattern)
	var matches []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			rel, relErr := filepath.Rel(base, path)
			if relErr != nil {
				return nil
			}
			matches = append(matches, filepath.ToSlash(rel))
		}
		return nil
	})
	return matches, err
}

// ExpandGlobs matches every glob at any depth under root (as **/<glob>) and
// returns the union as sorted, de-duplicated slash paths relative to root.
// Symlinked directories are not traversed by **.
func ExpandGlobs(root string, globs []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	for _, g := range globs {
		pattern := "**/" + strings.TrimPrefix(filepath.ToSlash(g), "/")
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithNoFollow())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g, err)
		}
		for _, f := range found {
			seen[f] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
