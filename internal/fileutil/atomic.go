// Package fileutil provides filesystem helpers for crash-consistent record files.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

const (
	tempMarker   = ".tmp-"
	backupMarker = ".backup."
)

// rename is swapped in tests to simulate a crash before the final rename.
//
//nolint:gochecknoglobals // Test seam for crash simulation
var rename = os.Rename

// WriteAtomic writes data to path atomically with the provided permissions.
// It writes to a temp file in the same directory, fsyncs, then renames.
// Readers see either the previous content or the new content, never a mix.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := os.CreateTemp(dir, base+tempMarker+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

// Quarantine moves an unreadable file aside as "<path>.backup.<unix>" and
// returns the new name. An existing backup with the same second is not
// overwritten; a numeric suffix is added instead.
func Quarantine(path string, now time.Time) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	backup := path + backupMarker + strconv.FormatInt(now.Unix(), 10)
	candidate := backup
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			break
		}
		candidate = backup + "-" + strconv.Itoa(i)
	}

	if err := os.Rename(path, candidate); err != nil {
		return "", fmt.Errorf("quarantining %s: %w", filepath.Base(path), err)
	}

	syncDir(filepath.Dir(path))
	return candidate, nil
}

// IsAuxiliary reports whether name is a temp file left by WriteAtomic or a
// quarantined backup. Directory scans skip these.
func IsAuxiliary(name string) bool {
	base := filepath.Base(name)
	return strings.Contains(base, tempMarker) || strings.Contains(base, backupMarker)
}

// Best effort directory sync for rename durability.
func syncDir(dir string) {
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from a store-owned path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}
}
