// Package backup maintains the pre-mutation copies of patched files. The
// backup tree mirrors the installation's relative layout inside a reserved
// subdirectory, and the "manifest" of what was backed up is the directory
// tree itself: restore reconstructs it by walking the backup root.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/hulapatch/internal/install"
)

// DirName is the reserved backup subdirectory inside the installation root.
const DirName = "original_backup"

// Store manages backup IO rooted at an installation.
type Store struct {
	inst       *install.Installation
	backupRoot string
}

// NewStore builds a store for an installation.
func NewStore(inst *install.Installation) *Store {
	return &Store{
		inst:       inst,
		backupRoot: filepath.Join(inst.Root(), DirName),
	}
}

// Dir returns the backup root directory.
func (s *Store) Dir() string {
	return s.backupRoot
}

// Exists reports whether the backup tree is present on disk.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.backupRoot)
	return err == nil && info.IsDir()
}

// EnsureDir creates the backup root if absent. No-op when it already
// exists, so reruns keep whatever was captured first.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.backupRoot, 0o755); err != nil {
		return fmt.Errorf("backup: ensure backup dir: %w", err)
	}
	return nil
}

// Backup copies current bytes and timestamps of every existing target into
// the mirrored backup tree. Paths that do not exist are silently skipped:
// some targets are legitimately absent in a given installed version. A
// target that already has a backup copy is also skipped, so a rerun over
// patched files never clobbers the pristine capture from the first run.
// Returns the relative paths actually copied this time.
func (s *Store) Backup(relPaths []string) ([]string, error) {
	var saved []string
	for _, rel := range relPaths {
		src, exists := s.inst.Resolve(rel)
		if !exists {
			continue
		}
		dest := filepath.Join(s.backupRoot, filepath.FromSlash(rel))
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return saved, fmt.Errorf("backup: prepare %s: %w", rel, err)
		}
		if err := copyFile(src, dest); err != nil {
			return saved, fmt.Errorf("backup: copy %s: %w", rel, err)
		}
		saved = append(saved, rel)
	}
	return saved, nil
}

// Restore walks every file under the backup root and copies it back to the
// corresponding live location, overwriting unconditionally and creating
// missing parents. Only a missing backup root fails the whole restore;
// per-file failures are accumulated and the walk continues.
func (s *Store) Restore() ([]string, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("backup: no backup directory at %s", s.backupRoot)
	}
	var restored []string
	var failures []error
	walkErr := filepath.WalkDir(s.backupRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.backupRoot, path)
		if err != nil {
			failures = append(failures, err)
			return nil
		}
		dest := filepath.Join(s.inst.Root(), rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			failures = append(failures, fmt.Errorf("backup: restore %s: %w", rel, err))
			return nil
		}
		if err := copyFile(path, dest); err != nil {
			failures = append(failures, fmt.Errorf("backup: restore %s: %w", rel, err))
			return nil
		}
		restored = append(restored, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		failures = append(failures, walkErr)
	}
	return restored, errors.Join(failures...)
}

// copyFile duplicates file bytes and carries the source timestamps over,
// so a restored file looks untouched to mtime-based tooling.
func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
