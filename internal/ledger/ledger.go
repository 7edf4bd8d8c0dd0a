// Package ledger persists an append-only record of patch outcomes beside
// the backup tree. Idempotency detection stays with the in-file marker
// token; the ledger is the audit trail of who applied what, when.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Ledger appends patch outcome lines to a simple text file.
type Ledger struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Option customizes a Ledger during construction.
type Option func(*Ledger)

// WithClock overrides the timestamp source (tests).
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// New creates a ledger that writes to the provided path.
func New(path string, opts ...Option) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	l := &Ledger{path: path, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Path returns the file backing this ledger.
func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends one outcome entry. Write failures are swallowed: the
// ledger is informational and must never block a patch run.
func (l *Ledger) Record(runID, targetID, outcome string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %s %s %s\n",
		l.now().UTC().Format(time.RFC3339),
		strings.TrimSpace(runID),
		strings.TrimSpace(targetID),
		strings.TrimSpace(outcome),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries.
func (l *Ledger) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}
