// Package verify performs the best-effort post-patch check: reload the
// freshly patched package in a real interpreter and instantiate its
// primary API object. A failure here is reported, never acted on — rollback
// is a separate operator decision.
package verify

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// checkSnippet imports the patched package and constructs its entry object.
const checkSnippet = "import pyhula; pyhula.UserApi()"

// Result captures one verification attempt.
type Result struct {
	OK     bool
	Output string
	Err    error
}

// RunCommand executes the interpreter and returns combined output.
type RunCommand func(ctx context.Context, name string, args ...string) ([]byte, error)

// Verifier shells out to the configured Python interpreter.
type Verifier struct {
	python  string
	timeout time.Duration
	run     RunCommand
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithRunCommand injects the interpreter invocation (tests).
func WithRunCommand(run RunCommand) Option {
	return func(v *Verifier) {
		if run != nil {
			v.run = run
		}
	}
}

// New builds a Verifier for the given interpreter and deadline.
func New(python string, timeout time.Duration, opts ...Option) *Verifier {
	v := &Verifier{
		python:  strings.TrimSpace(python),
		timeout: timeout,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
	if v.python == "" {
		v.python = "python"
	}
	if v.timeout <= 0 {
		v.timeout = 20 * time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Check imports pyhula and instantiates UserApi in a fresh interpreter, so
// the just-rewritten files are what actually gets loaded.
func (v *Verifier) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	out, err := v.run(ctx, v.python, "-c", checkSnippet)
	result := Result{Output: strings.TrimSpace(string(out))}
	if err != nil {
		result.Err = err
		return result
	}
	result.OK = true
	return result
}
