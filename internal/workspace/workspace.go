package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Workspace is the fixed directory every caller-supplied path is resolved against.
type Workspace struct {
	root string
}

// New canonicalises root (absolute, symlinks evaluated) and checks that it is a directory.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s: %w", resolved, ErrNotDirectory)
	}
	return &Workspace{root: resolved}, nil
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a caller path onto an absolute path inside the workspace.
func (w *Workspace) Resolve(relative string) (string, error) {
	return Resolve(w.root, relative)
}

// Rel returns abs relative to the workspace root, slash separated.
// Paths outside the root are returned unchanged.
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || !Contains(w.root, abs) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Resolve joins relative onto base and rejects anything that lands outside base.
// An absolute relative replaces base entirely, so it only passes when it already
// points inside base. When the target exists its symlinks are evaluated and the
// real location must stay inside base as well. base must be canonical.
func Resolve(base, relative string) (string, error) {
	var target string
	if filepath.IsAbs(relative) {
		target = filepath.Clean(relative)
	} else {
		target = filepath.Clean(filepath.Join(base, relative))
	}

	if !Contains(base, target) {
		return "", ErrAccessDenied
	}

	evaluated, err := filepath.EvalSymlinks(target)
	switch {
	case err == nil:
		if !Contains(base, evaluated) {
			return "", ErrAccessDenied
		}
	case IsMissing(err):
		// nothing to follow yet; callers report NotFound
	default:
		return "", fmt.Errorf("resolve %s: %w", relative, err)
	}

	return target, nil
}

// IsMissing reports whether err means the path is absent, including the case
// where a parent component is a regular file.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// Contains reports whether target is base or a descendant of it, comparing whole
// path segments so that /ws-evil never passes for /ws.
func Contains(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
