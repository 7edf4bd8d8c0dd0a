// Package install resolves the on-disk location of the pyhula package that
// the patch targets live in. Existence is always a reported value, never an
// error: a missing file is a legitimate state for some installed versions.
package install

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Files written by hulapatch next to the backup tree.
const (
	FileLog    = "hulapatch.log"
	FileLedger = "hulapatch.ledger"
)

// locateSnippet asks the interpreter itself where pyhula is installed.
const locateSnippet = "import pyhula, os; print(os.path.dirname(pyhula.__file__))"

// Installation is the resolved package root. Read-only for the lifetime of
// a run.
type Installation struct {
	root string
}

// New wraps an already-known installation root.
func New(root string) *Installation {
	return &Installation{root: filepath.Clean(root)}
}

// Root returns the installation root path.
func (i *Installation) Root() string {
	return i.root
}

// Resolve maps a relative target path to its absolute location and reports
// whether a regular file exists there.
func (i *Installation) Resolve(relPath string) (string, bool) {
	path := filepath.Join(i.root, filepath.FromSlash(relPath))
	info, err := os.Stat(path)
	if err != nil {
		return path, false
	}
	return path, !info.IsDir()
}

// LogPath returns where the run log lives, beside the backup tree.
func (i *Installation) LogPath() string {
	return filepath.Join(i.root, FileLog)
}

// LedgerPath returns where the applied-patch ledger lives, beside the
// backup tree.
func (i *Installation) LedgerPath() string {
	return filepath.Join(i.root, FileLedger)
}

// RunCommand executes an interpreter invocation and returns combined output.
type RunCommand func(name string, args ...string) ([]byte, error)

// Finder discovers the pyhula installation through the Python interpreter.
type Finder struct {
	python string
	run    RunCommand
}

// FinderOption customizes a Finder.
type FinderOption func(*Finder)

// WithRunCommand injects the interpreter invocation (tests).
func WithRunCommand(run RunCommand) FinderOption {
	return func(f *Finder) {
		if run != nil {
			f.run = run
		}
	}
}

// NewFinder builds a Finder that shells out to the given interpreter.
func NewFinder(python string, opts ...FinderOption) *Finder {
	f := &Finder{
		python: strings.TrimSpace(python),
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
	if f.python == "" {
		f.python = "python"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Find locates the installed package by importing it and reading back the
// module directory. Fails when pyhula is not importable or the reported
// directory does not exist.
func (f *Finder) Find() (*Installation, error) {
	out, err := f.run(f.python, "-c", locateSnippet)
	if err != nil {
		return nil, fmt.Errorf("install: pyhula not importable via %s: %w", f.python, err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, fmt.Errorf("install: interpreter %s reported an empty pyhula path", f.python)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("install: reported pyhula path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("install: reported pyhula path %s is not a directory", root)
	}
	return New(root), nil
}
