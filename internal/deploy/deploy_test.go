package deploy

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "2025-q1")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.md"), []byte("# Code Recap\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.html"), []byte("<!DOCTYPE html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "stats.csv"), []byte("period\n"), 0o644))

	return dir
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}

	sort.Strings(names)

	return names
}

func TestZip(t *testing.T) {
	t.Parallel()

	dir := writeReport(t)
	outPath := filepath.Join(t.TempDir(), "report.zip")

	require.NoError(t, Zip(dir, outPath))

	assert.Equal(t, []string{"assets/stats.csv", "report.html", "report.md"}, archiveNames(t, outPath))
}

func TestZipPreservesContent(t *testing.T) {
	t.Parallel()

	dir := writeReport(t)
	outPath := filepath.Join(t.TempDir(), "report.zip")
	require.NoError(t, Zip(dir, outPath))

	reader, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer reader.Close()

	file, err := reader.Open("report.md")
	require.NoError(t, err)
	defer file.Close()

	buf := make([]byte, 32)
	n, _ := file.Read(buf)
	assert.Equal(t, "# Code Recap\n", string(buf[:n]))
}

func TestZipRejectsMissingDir(t *testing.T) {
	t.Parallel()

	err := Zip(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "out.zip"))
	assert.Error(t, err)
}

func TestZipRejectsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := Zip(path, filepath.Join(t.TempDir(), "out.zip"))
	assert.Error(t, err)
}

func TestZipRejectsArchiveInsideSource(t *testing.T) {
	t.Parallel()

	dir := writeReport(t)

	err := Zip(dir, filepath.Join(dir, "self.zip"))
	assert.Error(t, err)
}

func TestZipTargetPublish(t *testing.T) {
	t.Parallel()

	dir := writeReport(t)
	outDir := t.TempDir()
	target := &ZipTarget{OutDir: outDir}

	path, err := target.Publish(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "2025-q1.zip"), path)
	assert.Equal(t, path, target.ArchiveName(dir))
	assert.FileExists(t, path)
}

func TestZipTargetDefaultsNextToSource(t *testing.T) {
	t.Parallel()

	dir := writeReport(t)
	target := &ZipTarget{}

	path, err := target.Publish(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(dir), filepath.Dir(path))
	assert.Equal(t, "2025-q1.zip", filepath.Base(path))
}

func TestZipTargetHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&ZipTarget{}).Publish(ctx, writeReport(t))
	assert.ErrorIs(t, err, context.Canceled)
}
