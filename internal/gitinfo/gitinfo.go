package gitinfo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotRepository is returned when no repository encloses the directory.
var ErrNotRepository = errors.New("not a git repository")

// DefaultCommitLimit is how many recent commits Inspect returns.
const DefaultCommitLimit = 5

// Status summarises a repository the way `git status --porcelain`,
// `git log --oneline` and `git branch --show-current` would.
type Status struct {
	Changes []string // "XY path", sorted by path
	Commits []string // "<short hash> <subject>", newest first
	Branch  string   // empty when HEAD is detached
}

// Inspect opens the repository containing dir and collects its status.
func Inspect(dir string, commitLimit int) (*Status, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	st := &Status{}

	wt, err := repo.Worktree()
	switch {
	case err == nil:
		changes, statusErr := wt.Status()
		if statusErr != nil {
			return nil, fmt.Errorf("worktree status: %w", statusErr)
		}
		st.Changes = porcelain(changes)
	case errors.Is(err, git.ErrIsBareRepository):
	default:
		return nil, fmt.Errorf("worktree: %w", err)
	}

	if head, headErr := repo.Head(); headErr == nil {
		commits, logErr := recentCommits(repo, head.Hash(), commitLimit)
		if logErr != nil {
			return nil, logErr
		}
		st.Commits = commits
	}

	// HEAD stays symbolic on an unborn branch, so this works before the first commit.
	if ref, refErr := repo.Reference(plumbing.HEAD, false); refErr == nil && ref.Type() == plumbing.SymbolicReference {
		st.Branch = ref.Target().Short()
	}

	return st, nil
}

func porcelain(s git.Status) []string {
	paths := make([]string, 0, len(s))
	for p, fs := range s {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, len(paths))
	for i, p := range paths {
		fs := s[p]
		lines[i] = fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, p)
	}
	return lines
}

func recentCommits(repo *git.Repository, from plumbing.Hash, limit int) ([]string, error) {
	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	var commits []string
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= limit {
			return storer.ErrStop
		}
		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		commits = append(commits, c.Hash.String()[:7]+" "+subject)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return commits, nil
}
