// Package fsio is the thin filesystem layer the core consumes: a markdown
// directory walk, whole-file reads, atomic single-file rewrites, moves into
// the archive, and last-modified lookups for staleness checks.
package fsio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// ErrDestinationExists indicates a move would overwrite an existing file.
var ErrDestinationExists = errors.New("destination already exists")

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Disk implements the corpus collaborators against the local filesystem.
type Disk struct{}

// Walk returns every markdown file under root in lexical order. Hidden
// directories such as .git are not descended into. A missing root yields an
// error wrapping fs.ErrNotExist.
func (Disk) Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walking %s: not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}

// ReadFile returns the full contents of path.
func (Disk) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces path with data atomically (temp file in the same
// directory, then rename), creating parent directories as needed.
func (Disk) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// atomic.WriteFile keeps existing permissions but creates new files 0600.
	if isNew {
		if err := os.Chmod(path, filePerms); err != nil {
			return fmt.Errorf("setting permissions on %s: %w", path, err)
		}
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func (Disk) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Move renames src to dst, creating dst's directory. It refuses to overwrite.
func (Disk) Move(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), dirPerms); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return nil
}

// ModTime returns the last-modified time of path.
func (Disk) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
