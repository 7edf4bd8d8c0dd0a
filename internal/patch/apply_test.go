package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const mavlinkFixture = `import struct

class MAVLink_header(object):
    def pack(self, force_mavlink1=False):
        """
        pack the MAVLink header into a byte string
        """
        return struct.pack('<BBBBBB', 253, self.mlen, self.seq,
                self.srcSystem, self.srcComponent, self.msgId)

    def unpack(self, data):
        return data
`

func mavlinkTarget(t *testing.T) Target {
	t.Helper()
	for _, target := range Catalog() {
		if target.ID == "mavlink-header-fix" {
			return target
		}
	}
	t.Fatal("mavlink target missing from catalog")
	return Target{}
}

func udpTarget(t *testing.T) Target {
	t.Helper()
	for _, target := range Catalog() {
		if target.ID == "udp-binding-fix" {
			return target
		}
	}
	t.Fatal("udp target missing from catalog")
	return Target{}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.py")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyReplacesMethodBodyOnce(t *testing.T) {
	path := writeTemp(t, mavlinkFixture)
	target := mavlinkTarget(t)

	result := Apply(path, target)
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s (%v)", result.Outcome, result.Err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(after)
	if got := strings.Count(text, target.Marker); got != 1 {
		t.Fatalf("expected marker exactly once, got %d", got)
	}
	if strings.Contains(text, "253, self.mlen") {
		t.Fatalf("original method body should be gone")
	}
	if !strings.Contains(text, "    def unpack(self, data):") {
		t.Fatalf("sibling method must survive untouched")
	}
	if !strings.Contains(text, "    def pack(self, force_mavlink1=False):") {
		t.Fatalf("replacement must sit at the original header depth")
	}
	if result.Before != mavlinkFixture || result.After != text {
		t.Fatalf("result should carry before/after text for the applied change")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	path := writeTemp(t, mavlinkFixture)
	target := mavlinkTarget(t)

	if result := Apply(path, target); result.Outcome != OutcomeApplied {
		t.Fatalf("first apply: %s (%v)", result.Outcome, result.Err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	result := Apply(path, target)
	if result.Outcome != OutcomeAlreadyApplied {
		t.Fatalf("second apply should report already applied, got %s", result.Outcome)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("second apply must leave file bytes unchanged")
	}
}

func TestApplyPatternNotFoundLeavesFileUntouched(t *testing.T) {
	content := "import struct\n\nclass Other(object):\n    def pack_v2(self):\n        pass\n"
	path := writeTemp(t, content)

	result := Apply(path, mavlinkTarget(t))
	if result.Outcome != OutcomePatternNotFound {
		t.Fatalf("expected pattern-not-found, got %s", result.Outcome)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != content {
		t.Fatalf("file must not be mutated on a pattern miss")
	}
}

func TestApplyFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.py")
	result := Apply(path, mavlinkTarget(t))
	if result.Outcome != OutcomeFileMissing {
		t.Fatalf("expected file-missing, got %s", result.Outcome)
	}
}

func TestApplyWrapsBindStatement(t *testing.T) {
	content := strings.Join([]string{
		"class TaskController:",
		"    def start(self):",
		"        self.sock.bind(('', self.listen_port))",
		"        self.running = True",
		"",
	}, "\n")
	path := writeTemp(t, content)
	target := udpTarget(t)

	result := Apply(path, target)
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s (%v)", result.Outcome, result.Err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(after)
	if got := strings.Count(text, target.Marker); got != 1 {
		t.Fatalf("expected marker exactly once, got %d", got)
	}
	if !strings.Contains(text, "        try:") {
		t.Fatalf("retry block must sit at the statement depth")
	}
	if !strings.Contains(text, "            self.sock.bind(('', self.listen_port))") {
		t.Fatalf("original statement must survive inside the try block")
	}
	if !strings.Contains(text, "self.sock.bind(('127.0.0.1', self.listen_port))") {
		t.Fatalf("loopback fallback at the requested port is missing")
	}
	if !strings.Contains(text, "self.sock.bind(('127.0.0.1', 0))") {
		t.Fatalf("loopback fallback at an OS-assigned port is missing")
	}
	if !strings.Contains(text, "        self.running = True") {
		t.Fatalf("following statement must survive untouched")
	}

	if again := Apply(path, target); again.Outcome != OutcomeAlreadyApplied {
		t.Fatalf("rerun should report already applied, got %s", again.Outcome)
	}
}

func TestApplyWrapsBareSockVariant(t *testing.T) {
	content := "def serve(sock, port):\n    sock.bind(('', port))\n    return sock\n"
	path := writeTemp(t, content)

	result := Apply(path, udpTarget(t))
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s (%v)", result.Outcome, result.Err)
	}
	text := result.After
	if !strings.Contains(text, "sock.bind(('127.0.0.1', port))") {
		t.Fatalf("fallback must reuse the bare receiver and port names")
	}
	if strings.Contains(text, "self.sock") {
		t.Fatalf("bare variant must not gain a self receiver")
	}
}
