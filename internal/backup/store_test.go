package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/hulapatch/internal/install"
)

func writeFixture(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "userapi.py", "original-api\n")
	writeFixture(t, root, "pypack/system/taskcontroller.py", "original-controller\n")

	store := NewStore(install.New(root))
	if err := store.EnsureDir(); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	saved, err := store.Backup([]string{"userapi.py", "pypack/system/taskcontroller.py"})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 files backed up, got %v", saved)
	}

	// Mutate the live files, then restore.
	writeFixture(t, root, "userapi.py", "patched-api\n")
	writeFixture(t, root, "pypack/system/taskcontroller.py", "patched-controller\n")

	restored, err := store.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected 2 files restored, got %v", restored)
	}
	got, err := os.ReadFile(filepath.Join(root, "userapi.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original-api\n" {
		t.Fatalf("restore did not reproduce original bytes: %q", got)
	}
	got, err = os.ReadFile(filepath.Join(root, "pypack", "system", "taskcontroller.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original-controller\n" {
		t.Fatalf("restore did not reproduce original bytes: %q", got)
	}
}

func TestBackupSkipsMissingTargets(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "userapi.py", "api\n")

	store := NewStore(install.New(root))
	if err := store.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	saved, err := store.Backup([]string{"userapi.py", "pypack/fylo/mavlink.py"})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(saved) != 1 || saved[0] != "userapi.py" {
		t.Fatalf("expected only the existing file, got %v", saved)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "pypack")); !os.IsNotExist(err) {
		t.Fatalf("missing target should leave no backup entry")
	}
}

func TestBackupKeepsFirstCapture(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "userapi.py", "pristine\n")

	store := NewStore(install.New(root))
	if err := store.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Backup([]string{"userapi.py"}); err != nil {
		t.Fatal(err)
	}
	writeFixture(t, root, "userapi.py", "patched\n")

	saved, err := store.Backup([]string{"userapi.py"})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("rerun must not recopy an already captured file, got %v", saved)
	}
	got, err := os.ReadFile(filepath.Join(store.Dir(), "userapi.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pristine\n" {
		t.Fatalf("backup lost the pristine capture: %q", got)
	}
}

func TestRestoreFailsWithoutBackupDir(t *testing.T) {
	store := NewStore(install.New(t.TempDir()))
	if _, err := store.Restore(); err == nil {
		t.Fatalf("expected restore to fail without a backup directory")
	}
}

func TestRestoreRecreatesMissingParents(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "pypack/fylo/mavlink.py", "header\n")

	store := NewStore(install.New(root))
	if err := store.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Backup([]string{"pypack/fylo/mavlink.py"}); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "pypack")); err != nil {
		t.Fatal(err)
	}
	restored, err := store.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 1 {
		t.Fatalf("expected 1 file restored, got %v", restored)
	}
	if _, err := os.Stat(filepath.Join(root, "pypack", "fylo", "mavlink.py")); err != nil {
		t.Fatalf("expected restored file with recreated parents: %v", err)
	}
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	store := NewStore(install.New(t.TempDir()))
	if err := store.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureDir(); err != nil {
		t.Fatalf("second ensure should be a no-op, got %v", err)
	}
}
