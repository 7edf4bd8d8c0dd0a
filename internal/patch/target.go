// Package patch defines the closed catalog of known pyhula fixes and the
// applicator that rewrites a target file in place. The engine is not a
// general source-transformation framework: it detects and replaces exactly
// the code units the catalog names.
package patch

import "fmt"

// Kind distinguishes how a target's defective code unit is located and
// replaced.
type Kind string

const (
	// KindMethodBody replaces a whole method body found via its literal
	// header line and an indentation boundary scan.
	KindMethodBody Kind = "method-body"
	// KindInlineStatement wraps a single known statement, matched against
	// a list of literal variants, in a fault-tolerant block.
	KindInlineStatement Kind = "inline-statement"
)

// Target describes one known-defective code unit. Immutable once built;
// the catalog is fixed at process start.
type Target struct {
	ID      string
	Name    string
	RelPath string
	// Marker is a unique literal embedded in the replacement so future
	// runs detect prior application. It never occurs in unpatched source.
	Marker string
	Kind   Kind
	// Pattern is the literal method header for method-body targets.
	Pattern string
	// Variants are the literal call-expression spellings for
	// inline-statement targets; the first one present wins.
	Variants []string
	// Replacement is the fixed hardened block, stored at zero indentation
	// and re-indented to the matched depth at apply time.
	Replacement string
}

// Validate ensures the target is well-formed.
func (t Target) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("patch: target id is required")
	}
	if t.RelPath == "" {
		return fmt.Errorf("patch: relative path is required for %s", t.ID)
	}
	if t.Marker == "" {
		return fmt.Errorf("patch: marker token is required for %s", t.ID)
	}
	switch t.Kind {
	case KindMethodBody:
		if t.Pattern == "" {
			return fmt.Errorf("patch: method-body target %s needs a header pattern", t.ID)
		}
		if t.Replacement == "" {
			return fmt.Errorf("patch: method-body target %s needs a replacement block", t.ID)
		}
	case KindInlineStatement:
		if len(t.Variants) == 0 {
			return fmt.Errorf("patch: inline target %s needs statement variants", t.ID)
		}
	default:
		return fmt.Errorf("patch: unknown kind %q for %s", t.Kind, t.ID)
	}
	return nil
}

// Outcome enumerates applicator results.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeAlreadyApplied  Outcome = "already-applied"
	OutcomePatternNotFound Outcome = "pattern-not-found"
	OutcomeFileMissing     Outcome = "file-missing"
	OutcomeError           Outcome = "error"
)

// Result captures a single applicator invocation. Immutable after creation.
type Result struct {
	TargetID string
	Name     string
	Path     string
	Outcome  Outcome
	// Before and After hold the full file text around an applied change,
	// for diff previews. Empty unless Outcome is OutcomeApplied.
	Before string
	After  string
	Err    error
}

// Success reports whether the target ended in a patched state, whether by
// this run or a previous one.
func (r Result) Success() bool {
	return r.Outcome == OutcomeApplied || r.Outcome == OutcomeAlreadyApplied
}

// Describe renders a one-line human-readable outcome.
func (r Result) Describe() string {
	switch r.Outcome {
	case OutcomeApplied:
		return fmt.Sprintf("applied %s", r.Name)
	case OutcomeAlreadyApplied:
		return fmt.Sprintf("%s already applied", r.Name)
	case OutcomePatternNotFound:
		return fmt.Sprintf("could not find pattern for %s", r.Name)
	case OutcomeFileMissing:
		return fmt.Sprintf("file missing for %s: %s", r.Name, r.Path)
	case OutcomeError:
		return fmt.Sprintf("failed to apply %s: %v", r.Name, r.Err)
	default:
		return fmt.Sprintf("%s: %s", r.Name, r.Outcome)
	}
}
