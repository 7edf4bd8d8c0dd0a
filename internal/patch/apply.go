package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/hulapatch/internal/scan"
)

// Apply rewrites one target file in place. It never mutates the file
// unless it produces OutcomeApplied: missing files, already-present
// markers, and unmatched patterns all return early with the file
// untouched. Re-running after a successful apply is a no-op because the
// replacement embeds the marker token.
func Apply(path string, target Target) Result {
	result := Result{TargetID: target.ID, Name: target.Name, Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Outcome = OutcomeFileMissing
			return result
		}
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("patch: read %s: %w", path, err)
		return result
	}
	text := string(data)

	if strings.Contains(text, target.Marker) {
		result.Outcome = OutcomeAlreadyApplied
		return result
	}

	var patched string
	var ok bool
	switch target.Kind {
	case KindMethodBody:
		patched, ok = replaceMethodBody(text, target)
	case KindInlineStatement:
		patched, ok = wrapInlineStatement(text, target)
	default:
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("patch: unknown kind %q for %s", target.Kind, target.ID)
		return result
	}
	if !ok {
		result.Outcome = OutcomePatternNotFound
		return result
	}

	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := writeFileAtomic(path, []byte(patched), mode); err != nil {
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("patch: write %s: %w", path, err)
		return result
	}

	result.Outcome = OutcomeApplied
	result.Before = text
	result.After = patched
	return result
}

// replaceMethodBody swaps the full span of the method opened by the target
// pattern for the replacement block, re-indented to the matched header
// depth.
func replaceMethodBody(text string, target Target) (string, bool) {
	lines := scan.SplitLines(text)
	span, ok := scan.FindBlock(lines, target.Pattern)
	if !ok {
		return "", false
	}
	prefix := scan.IndentPrefix(lines[span.Start])
	replacement := reindent(target.Replacement, prefix)

	patched := make([]string, 0, len(lines)-span.Len()+len(replacement))
	patched = append(patched, lines[:span.Start]...)
	patched = append(patched, replacement...)
	patched = append(patched, lines[span.End:]...)
	return scan.JoinLines(patched), true
}

// wrapInlineStatement finds the first line carrying any known variant of
// the bind call and substitutes a retry block at that line's depth.
func wrapInlineStatement(text string, target Target) (string, bool) {
	lines := scan.SplitLines(text)
	for _, variant := range target.Variants {
		for i, line := range lines {
			if !strings.Contains(line, variant) {
				continue
			}
			prefix := scan.IndentPrefix(line)
			wrapped := retryWrap(variant, prefix)
			patched := make([]string, 0, len(lines)+len(wrapped)-1)
			patched = append(patched, lines[:i]...)
			patched = append(patched, wrapped...)
			patched = append(patched, lines[i+1:]...)
			return scan.JoinLines(patched), true
		}
	}
	return "", false
}

// retryWrap builds the hardened bind block for a matched variant. On the
// "address not valid" fault it retries against loopback at the requested
// port, then loopback at an OS-assigned port; any other fault re-raises.
func retryWrap(variant, prefix string) []string {
	recv := "sock"
	port := "port"
	if strings.HasPrefix(variant, "self.") {
		recv = "self.sock"
		port = "self.listen_port"
	}
	block := []string{
		MarkerUDPBinding + ": Robust UDP binding",
		"try:",
		"    " + variant,
		"except OSError as e:",
		"    if getattr(e, 'winerror', None) == 10049:",
		"        try:",
		fmt.Sprintf("            %s.bind(('127.0.0.1', %s))", recv, port),
		fmt.Sprintf("            print(f\"UDP bound to localhost:{%s} (fallback)\")", port),
		"        except OSError:",
		fmt.Sprintf("            %s.bind(('127.0.0.1', 0))", recv),
		fmt.Sprintf("            print(f\"UDP bound to localhost:{%s.getsockname()[1]} (auto-assigned)\")", recv),
		"    else:",
		"        raise",
	}
	out := make([]string, len(block))
	for i, line := range block {
		out[i] = prefix + line
	}
	return out
}

// reindent shifts a zero-indented replacement block to the given prefix.
// Blank lines stay empty so no trailing whitespace is introduced.
func reindent(block, prefix string) []string {
	lines := scan.SplitLines(block)
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		out[i] = prefix + line
	}
	return out
}

// writeFileAtomic replaces the file contents via a temp file and rename in
// the same directory, so a crash mid-write cannot leave a torn file.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hulapatch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
