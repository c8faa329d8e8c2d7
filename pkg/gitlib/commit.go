package gitlib

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrParentNotFound is returned when the requested parent commit is not found.
var ErrParentNotFound = errors.New("parent commit not found")

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	sig := c.commit.Author()

	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}

// Message returns the full commit message.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	return c.commit.Summary()
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount())
}

// Parent returns the nth parent commit.
func (c *Commit) Parent(n int) (*Commit, error) {
	parent := c.commit.Parent(uint(n))
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{commit: parent, repo: c.repo}, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// FileStat is the line-change summary for one file in a commit.
type FileStat struct {
	Path    string
	Added   int
	Removed int
}

// Stats returns per-file added/removed line counts for the commit, diffing
// against the first parent (or the empty tree for an initial commit).
// Merge commits report no stats: their changes are attributed to the
// originating commits on the merged branches.
func (c *Commit) Stats() ([]FileStat, error) {
	if c.NumParents() > 1 {
		return nil, nil
	}

	diff, err := c.firstParentDiff()
	if err != nil {
		return nil, err
	}
	defer func() { _ = diff.Free() }()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	stats := make([]FileStat, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			continue
		}

		patch, patchErr := diff.Patch(i)
		if patchErr != nil {
			continue
		}

		_, added, removed, statErr := patch.LineStats()
		_ = patch.Free()

		if statErr != nil {
			continue
		}

		path := delta.NewFile.Path
		if path == "" {
			path = delta.OldFile.Path
		}

		stats = append(stats, FileStat{Path: path, Added: added, Removed: removed})
	}

	return stats, nil
}

// PatchText returns the unified diff of the commit against its first parent,
// truncated to maxLines with an explicit truncation notice. Merge commits
// return an empty string.
func (c *Commit) PatchText(maxLines int) (string, error) {
	if c.NumParents() > 1 {
		return "", nil
	}

	diff, err := c.firstParentDiff()
	if err != nil {
		return "", err
	}
	defer func() { _ = diff.Free() }()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return "", fmt.Errorf("get num deltas: %w", err)
	}

	var builder strings.Builder

	for i := range numDeltas {
		patch, patchErr := diff.Patch(i)
		if patchErr != nil {
			continue
		}

		text, textErr := patch.String()
		_ = patch.Free()

		if textErr != nil {
			continue
		}

		builder.WriteString(text)
	}

	return truncateLines(builder.String(), maxLines), nil
}

func (c *Commit) firstParentDiff() (*git2go.Diff, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}
	defer tree.Free()

	var parentTree *git2go.Tree

	if c.NumParents() > 0 {
		parent := c.commit.Parent(0)
		if parent == nil {
			return nil, ErrParentNotFound
		}
		defer parent.Free()

		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("get parent tree: %w", err)
		}
		defer parentTree.Free()
	}

	return c.repo.DiffTreeToTree(parentTree, tree)
}

func truncateLines(text string, maxLines int) string {
	if maxLines <= 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}

	truncated := strings.Join(lines[:maxLines], "\n")

	return fmt.Sprintf("%s\n... (truncated, %d more lines)", truncated, len(lines)-maxLines)
}

// CommitIter iterates over commits newest-first, honoring the date window.
type CommitIter struct {
	walk  *git2go.RevWalk
	repo  *Repository
	since *time.Time
	until *time.Time
}

// Next returns the next commit in the iteration. Returns io.EOF when the walk
// is exhausted or every remaining commit predates the since bound.
func (ci *CommitIter) Next() (*Commit, error) {
	for {
		oid := new(git2go.Oid)

		err := ci.walk.Next(oid)
		if err != nil {
			ci.Close()

			return nil, io.EOF
		}

		commit, err := ci.repo.repo.LookupCommit(oid)
		if err != nil {
			continue
		}

		when := commit.Author().When

		// The walk is time-sorted newest first, so the first commit older
		// than since ends the iteration.
		if ci.since != nil && when.Before(*ci.since) {
			commit.Free()
			ci.Close()

			return nil, io.EOF
		}

		if ci.until != nil && !when.Before(*ci.until) {
			commit.Free()

			continue
		}

		return &Commit{commit: commit, repo: ci.repo}, nil
	}
}

// ForEach calls the callback for each commit, freeing each one after use.
func (ci *CommitIter) ForEach(cb func(*Commit) error) error {
	for {
		commit, err := ci.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		cbErr := cb(commit)
		commit.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Close releases the walker resources.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}
