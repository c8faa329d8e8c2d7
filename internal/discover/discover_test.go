package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRepo(t *testing.T, root, name string) string {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(path, ".git"), 0o755))

	return path
}

func TestTopLevelRepos(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	api := mkRepo(t, root, "api")
	web := mkRepo(t, root, "web")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-repo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray-file"), nil, 0o644))

	repos, err := TopLevelRepos(root)
	require.NoError(t, err)

	assert.Equal(t, []string{api, web}, repos)
}

func TestTopLevelReposRootIsRepo(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := mkRepo(t, parent, "solo")

	repos, err := TopLevelRepos(root)
	require.NoError(t, err)

	assert.Equal(t, []string{root}, repos)
}

func TestTopLevelReposGitFile(t *testing.T) {
	t.Parallel()

	// Submodule-style .git files count as repositories too.
	root := t.TempDir()
	path := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ".git"), []byte("gitdir: ../.git/modules/sub"), 0o644))

	repos, err := TopLevelRepos(root)
	require.NoError(t, err)

	assert.Equal(t, []string{path}, repos)
}

func TestTopLevelReposMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := TopLevelRepos(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
