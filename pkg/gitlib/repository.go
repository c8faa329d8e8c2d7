package gitlib

import (
	"fmt"
	"path/filepath"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Signature represents a git signature (author/committer).
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository working directory path.
func (r *Repository) Path() string {
	return r.path
}

// Name returns the repository name (base of its path).
func (r *Repository) Name() string {
	return filepath.Base(filepath.Clean(r.path))
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// ResolveCommit resolves a revision spec (full or abbreviated SHA, ref name)
// to a commit. Used for retrieving commits referenced by short SHA.
func (r *Repository) ResolveCommit(spec string) (*Commit, error) {
	obj, err := r.repo.RevparseSingle(spec)
	if err != nil {
		return nil, fmt.Errorf("revparse %q: %w", spec, err)
	}
	defer obj.Free()

	commit, err := obj.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("object %q is not a commit: %w", spec, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// FetchOrigin fetches the default refspecs from the origin remote.
// Repositories without an origin remote are reported as an error.
func (r *Repository) FetchOrigin() error {
	remote, err := r.repo.Remotes.Lookup("origin")
	if err != nil {
		return fmt.Errorf("lookup origin: %w", err)
	}
	defer remote.Free()

	err = remote.Fetch(nil, nil, "")
	if err != nil {
		return fmt.Errorf("fetch origin: %w", err)
	}

	return nil
}

// SubmodulePaths returns the working directory paths of all submodules,
// relative to the repository root.
func (r *Repository) SubmodulePaths() ([]string, error) {
	var paths []string

	err := r.repo.Submodules.Foreach(func(sub *git2go.Submodule, _ string) error {
		paths = append(paths, sub.Path())

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate submodules: %w", err)
	}

	return paths, nil
}

// LogOptions configures the commit log iteration.
type LogOptions struct {
	Since       *time.Time // Only include commits at or after this time.
	Until       *time.Time // Only include commits before this time.
	FirstParent bool       // Follow only first parent (git log --first-parent).
}

// Log returns a commit iterator starting from HEAD, newest first.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime)

	iter := &CommitIter{walk: walk, repo: r}

	if opts != nil {
		iter.since = opts.Since
		iter.until = opts.Until

		if opts.FirstParent {
			walk.SimplifyFirstParent()
		}
	}

	return iter, nil
}

// DiffTreeToTree computes the diff between two trees. Either tree may be nil
// (nil old tree diffs against the empty tree, as for an initial commit).
func (r *Repository) DiffTreeToTree(oldTree, newTree *git2go.Tree) (*git2go.Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return diff, nil
}
