// Package run sequences a full patch cycle: locate the installation, back
// up the target files, apply each catalog patch in order, then verify and
// report. Each target is independent; only a missing installation or a
// failed backup aborts the run.
package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kingrea/hulapatch/internal/backup"
	"github.com/kingrea/hulapatch/internal/config"
	"github.com/kingrea/hulapatch/internal/install"
	"github.com/kingrea/hulapatch/internal/ledger"
	"github.com/kingrea/hulapatch/internal/logging"
	"github.com/kingrea/hulapatch/internal/patch"
	"github.com/kingrea/hulapatch/internal/verify"
)

// Phase names the orchestrator's states.
type Phase string

const (
	PhaseLocate   Phase = "locate-install"
	PhaseBackup   Phase = "backup"
	PhaseApply    Phase = "apply"
	PhaseRestore  Phase = "restore"
	PhaseVerify   Phase = "verify"
	PhaseReport   Phase = "report"
	PhaseComplete Phase = "complete"
	PhaseAborted  Phase = "aborted"
)

// Mode names the three orchestrator entry points.
type Mode string

const (
	ModeApply   Mode = "apply"
	ModeRestore Mode = "restore"
	ModeVerify  Mode = "verify"
)

// Event is a single human-readable progress step.
type Event struct {
	Phase   Phase
	Message string
}

// Observer receives progress events as the run advances.
type Observer func(Event)

// Checker abstracts the post-patch verification step.
type Checker interface {
	Check(ctx context.Context) verify.Result
}

// Summary is the immutable outcome of one orchestrator run.
type Summary struct {
	RunID    string
	Mode     Mode
	Root     string
	Phase    Phase
	Results  []patch.Result
	BackedUp []string
	Restored []string
	Verified *verify.Result
	Err      error
}

// Attempted counts targets the run tried to apply.
func (s Summary) Attempted() int {
	return len(s.Results)
}

// Applied counts targets that ended patched, whether by this run or a
// previous one.
func (s Summary) Applied() int {
	count := 0
	for _, r := range s.Results {
		if r.Success() {
			count++
		}
	}
	return count
}

// NewlyApplied counts targets this run actually rewrote.
func (s Summary) NewlyApplied() int {
	count := 0
	for _, r := range s.Results {
		if r.Outcome == patch.OutcomeApplied {
			count++
		}
	}
	return count
}

// Success reports overall run success per mode.
func (s Summary) Success() bool {
	if s.Phase == PhaseAborted {
		return false
	}
	switch s.Mode {
	case ModeApply:
		return s.Applied() > 0
	case ModeRestore:
		return s.Err == nil
	case ModeVerify:
		return s.Verified != nil && s.Verified.OK
	default:
		return false
	}
}

// Guidance returns the next-step hint shown on failures.
func (s Summary) Guidance() string {
	switch {
	case s.Phase == PhaseAborted && s.Mode != ModeRestore:
		return "Nothing was modified."
	case s.Mode == ModeApply && !s.Success():
		return "No patches landed. Run with --restore to revert any earlier changes."
	case s.Mode == ModeApply && s.Applied() < s.Attempted():
		return "Some patches did not land; pyhula may still misbehave. --restore reverts everything."
	case s.Mode == ModeApply && s.Verified != nil && !s.Verified.OK:
		return "Verification failed. --restore reverts to the backed-up originals."
	default:
		return ""
	}
}

// Locator resolves the pyhula installation for a run.
type Locator func() (*install.Installation, error)

// Runner drives the phase machine over the fixed target catalog.
type Runner struct {
	cfg     *config.Config
	catalog []patch.Target
	locate  Locator
	checker Checker
	observe Observer
	now     func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithObserver registers a progress callback.
func WithObserver(fn Observer) Option {
	return func(r *Runner) {
		if fn != nil {
			r.observe = fn
		}
	}
}

// WithLocator overrides installation discovery (tests).
func WithLocator(fn Locator) Option {
	return func(r *Runner) {
		if fn != nil {
			r.locate = fn
		}
	}
}

// WithChecker overrides the verification step (tests).
func WithChecker(c Checker) Option {
	return func(r *Runner) {
		if c != nil {
			r.checker = c
		}
	}
}

// WithClock overrides the run timestamp source (tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.now = clock
		}
	}
}

// New builds a Runner over the fixed patch catalog.
func New(cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{
		cfg:     cfg,
		catalog: patch.Catalog(),
		checker: verify.New(cfg.Python, cfg.VerifyTimeout()),
		now:     time.Now,
	}
	r.locate = r.defaultLocate
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Runner) defaultLocate() (*install.Installation, error) {
	if root := r.cfg.InstallRoot; root != "" {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("run: configured install root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("run: configured install root %s is not a directory", root)
		}
		return install.New(root), nil
	}
	return install.NewFinder(r.cfg.Python).Find()
}

func (r *Runner) emit(phase Phase, format string, args ...any) {
	if r.observe == nil {
		return
	}
	r.observe(Event{Phase: phase, Message: fmt.Sprintf(format, args...)})
}

func generateRunID(mode Mode, now time.Time) string {
	return fmt.Sprintf("%s-%d", mode, now.UnixNano())
}

// Apply runs the full patch cycle. It never mutates a file whose backup
// was not written first.
func (r *Runner) Apply(ctx context.Context) Summary {
	summary := Summary{Mode: ModeApply, RunID: generateRunID(ModeApply, r.now())}

	r.emit(PhaseLocate, "Locating pyhula installation")
	inst, err := r.locate()
	if err != nil {
		summary.Phase = PhaseAborted
		summary.Err = err
		r.emit(PhaseAborted, "pyhula not found: %v", err)
		return summary
	}
	summary.Root = inst.Root()
	r.emit(PhaseLocate, "Found pyhula at %s", inst.Root())

	logger, logErr := logging.New(inst.LogPath())
	if logErr == nil {
		defer logger.Close()
	}
	logger.Printf("run %s: applying %d patches to %s", summary.RunID, len(r.catalog), inst.Root())

	store := backup.NewStore(inst)
	if err := store.EnsureDir(); err != nil {
		summary.Phase = PhaseAborted
		summary.Err = err
		logger.Printf("run %s: %v", summary.RunID, err)
		r.emit(PhaseAborted, "could not create backup directory: %v", err)
		return summary
	}
	led, _ := ledger.New(inst.LedgerPath())

	r.emit(PhaseBackup, "Backing up original files to %s", store.Dir())
	saved, err := store.Backup(patch.RelPaths(r.catalog))
	if err != nil {
		summary.Phase = PhaseAborted
		summary.Err = err
		logger.Printf("run %s: backup failed: %v", summary.RunID, err)
		r.emit(PhaseAborted, "backup failed: %v", err)
		return summary
	}
	summary.BackedUp = saved
	for _, rel := range saved {
		r.emit(PhaseBackup, "Backed up %s", rel)
	}

	for _, target := range r.catalog {
		path, _ := inst.Resolve(target.RelPath)
		result := patch.Apply(path, target)
		summary.Results = append(summary.Results, result)
		led.Record(summary.RunID, target.ID, string(result.Outcome))
		logger.Printf("run %s: %s -> %s", summary.RunID, target.ID, result.Outcome)
		r.emit(PhaseApply, result.Describe())
	}

	if summary.Applied() > 0 {
		r.emit(PhaseVerify, "Verifying patched installation")
		verified := r.checker.Check(ctx)
		summary.Verified = &verified
		if verified.OK {
			logger.Printf("run %s: verification passed", summary.RunID)
			r.emit(PhaseVerify, "pyhula reloaded successfully with patches")
		} else {
			logger.Printf("run %s: verification failed: %v", summary.RunID, verified.Err)
			r.emit(PhaseVerify, "verification failed: %v", verified.Err)
		}
	}

	summary.Phase = PhaseComplete
	logger.Printf("run %s: %d/%d patches in effect", summary.RunID, summary.Applied(), summary.Attempted())
	r.emit(PhaseReport, "Patch summary: %d/%d patches in effect", summary.Applied(), summary.Attempted())
	return summary
}

// Restore copies every backed-up file over its live counterpart. Only a
// missing backup tree fails the whole restore.
func (r *Runner) Restore(ctx context.Context) Summary {
	summary := Summary{Mode: ModeRestore, RunID: generateRunID(ModeRestore, r.now())}

	r.emit(PhaseLocate, "Locating pyhula installation")
	inst, err := r.locate()
	if err != nil {
		summary.Phase = PhaseAborted
		summary.Err = err
		r.emit(PhaseAborted, "pyhula not found: %v", err)
		return summary
	}
	summary.Root = inst.Root()

	logger, logErr := logging.New(inst.LogPath())
	if logErr == nil {
		defer logger.Close()
	}

	store := backup.NewStore(inst)
	if !store.Exists() {
		summary.Phase = PhaseAborted
		summary.Err = fmt.Errorf("run: no backup directory at %s", store.Dir())
		logger.Printf("run %s: %v", summary.RunID, summary.Err)
		r.emit(PhaseAborted, "no backup directory found")
		return summary
	}

	r.emit(PhaseRestore, "Restoring original files from %s", store.Dir())
	restored, err := store.Restore()
	summary.Restored = restored
	summary.Err = err
	for _, rel := range restored {
		r.emit(PhaseRestore, "Restored %s", rel)
	}
	led, _ := ledger.New(inst.LedgerPath())
	led.Record(summary.RunID, "restore", fmt.Sprintf("%d-files", len(restored)))
	logger.Printf("run %s: restored %d files", summary.RunID, len(restored))

	summary.Phase = PhaseComplete
	r.emit(PhaseReport, "Restored %d original files", len(restored))
	return summary
}

// Verify checks the current installation without touching any file.
func (r *Runner) Verify(ctx context.Context) Summary {
	summary := Summary{Mode: ModeVerify, RunID: generateRunID(ModeVerify, r.now())}

	r.emit(PhaseLocate, "Locating pyhula installation")
	inst, err := r.locate()
	if err != nil {
		summary.Phase = PhaseAborted
		summary.Err = err
		r.emit(PhaseAborted, "pyhula not found: %v", err)
		return summary
	}
	summary.Root = inst.Root()

	r.emit(PhaseVerify, "Verifying installation at %s", inst.Root())
	verified := r.checker.Check(ctx)
	summary.Verified = &verified
	if verified.OK {
		r.emit(PhaseVerify, "pyhula imported and UserApi instantiated")
	} else {
		r.emit(PhaseVerify, "verification failed: %v", verified.Err)
	}

	summary.Phase = PhaseComplete
	return summary
}
