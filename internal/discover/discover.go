// Package discover locates git repositories under a root directory.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/coderecap/coderecap/pkg/gitlib"
)

// TopLevelRepos returns the immediate child directories of root that are git
// repositories, in sorted order. The root itself is included when it is a
// repository, so a root pointed directly at one repo still works.
func TopLevelRepos(root string) ([]string, error) {
	var repos []string

	if isRepo(root) {
		repos = append(repos, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if isRepo(path) {
			repos = append(repos, path)
		}
	}

	sort.Strings(repos)

	return repos, nil
}

// Submodules returns the initialized submodule working directories of the
// repository at repoPath, in sorted order. Declared-but-uninitialized
// submodules are skipped.
func Submodules(repoPath string) ([]string, error) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repoPath, err)
	}
	defer repo.Free()

	relPaths, err := repo.SubmodulePaths()
	if err != nil {
		return nil, fmt.Errorf("submodules of %s: %w", repoPath, err)
	}

	var paths []string

	for _, rel := range relPaths {
		path := filepath.Join(repoPath, rel)
		if isRepo(path) {
			paths = append(paths, path)
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// isRepo reports whether the directory carries a .git entry. Submodule
// working dirs keep .git as a file pointing at the parent's store, so any
// entry type counts.
func isRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))

	return err == nil
}
