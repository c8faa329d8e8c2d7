// Package deploy publishes rendered report directories. The built-in target
// packs a directory into a zip archive next to it; remote targets implement
// the same interface.
package deploy

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Target publishes a report directory and returns where it landed.
type Target interface {
	Publish(ctx context.Context, dir string) (string, error)
}

// ZipTarget packs report directories into zip archives.
type ZipTarget struct {
	// OutDir receives the archives; empty means alongside the source dir.
	OutDir string
}

// Publish implements Target. The archive is named after the directory.
func (t *ZipTarget) Publish(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(filepath.Clean(dir)) + ".zip"

	outDir := t.OutDir
	if outDir == "" {
		outDir = filepath.Dir(filepath.Clean(dir))
	}

	outPath := filepath.Join(outDir, name)
	if err := Zip(dir, outPath); err != nil {
		return "", err
	}

	return outPath, nil
}

// Zip writes the contents of dir into a zip archive at outPath. Entry names
// are slash-separated paths relative to dir; empty directories are skipped.
func Zip(dir, outPath string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat report dir: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	if err := validateOutPath(dir, outPath); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	writer := zip.NewWriter(out)

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		return addFile(writer, path, filepath.ToSlash(rel))
	})
	if err != nil {
		writer.Close()
		out.Close()
		os.Remove(outPath)

		return fmt.Errorf("zip %s: %w", dir, err)
	}

	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(outPath)

		return fmt.Errorf("finish archive: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

func addFile(writer *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, file)

	return err
}

// ArchiveName reports the archive path Publish would produce for dir without
// creating it.
func (t *ZipTarget) ArchiveName(dir string) string {
	name := filepath.Base(filepath.Clean(dir)) + ".zip"

	outDir := t.OutDir
	if outDir == "" {
		outDir = filepath.Dir(filepath.Clean(dir))
	}

	return filepath.Join(outDir, name)
}

// sanity guard against zipping a directory into itself
func validateOutPath(dir, outPath string) error {
	rel, err := filepath.Rel(dir, outPath)
	if err != nil {
		return nil
	}

	if rel == "." || !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("archive %s would be placed inside %s", outPath, dir)
	}

	return nil
}
