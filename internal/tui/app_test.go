package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kingrea/hulapatch/internal/config"
	"github.com/kingrea/hulapatch/internal/run"
	"github.com/kingrea/hulapatch/internal/verify"
)

const mavlinkFixture = `import struct

class MAVLink_header(object):
    def pack(self, force_mavlink1=False):
        """
        pack the MAVLink header into a byte string
        """
        return struct.pack('<BBBBBB', 253, self.mlen, self.seq,
                self.srcSystem, self.srcComponent, self.msgId)
`

const taskControllerFixture = `class TaskController:
    def start(self):
        self.sock.bind(('', self.listen_port))
        self.running = True
`

const userAPIFixture = `class UserApi:
    def connect(self, server_ip="192.168.100.1"):
        return self._control_server.connect(server_ip)
`

type stubChecker struct {
	result verify.Result
}

func (s *stubChecker) Check(ctx context.Context) verify.Result {
	return s.result
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	root := t.TempDir()
	writeFixture(t, root, "pypack/fylo/mavlink.py", mavlinkFixture)
	writeFixture(t, root, "pypack/system/taskcontroller.py", taskControllerFixture)
	writeFixture(t, root, "userapi.py", userAPIFixture)

	cfg := config.Default()
	cfg.InstallRoot = root
	cfg.Plain = true
	return NewApp(cfg, WithRunnerOptions(
		run.WithChecker(&stubChecker{result: verify.Result{OK: true}}),
	))
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuViewListsOperations(t *testing.T) {
	app := newTestApp(t)
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	view := app.View()
	for _, want := range []string{"Apply Patches", "Restore Backup", "Verify Installation", "Exit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("menu view missing %q:\n%s", want, view)
		}
	}
}

func TestEnterRunsApplyAndShowsSummary(t *testing.T) {
	app := newTestApp(t)
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if app.state != stateRunning {
		t.Fatalf("expected running state, got %d", app.state)
	}
	if cmd == nil {
		t.Fatal("expected a run command")
	}
	if !strings.Contains(app.View(), "Applying patches") {
		t.Fatalf("running view missing progress label:\n%s", app.View())
	}

	msg := cmd()
	finished, ok := msg.(runFinishedMsg)
	if !ok {
		t.Fatalf("expected runFinishedMsg, got %T", msg)
	}
	if !finished.summary.Success() {
		t.Fatalf("expected a successful apply run: %+v", finished.summary)
	}

	model, _ = app.Update(msg)
	app = model.(*App)
	if app.state != stateDone {
		t.Fatalf("expected done state, got %d", app.state)
	}
	view := app.View()
	if !strings.Contains(view, "3/3 patches in effect") {
		t.Fatalf("summary view missing patch count:\n%s", view)
	}
	if !strings.Contains(view, "m: menu") {
		t.Fatalf("summary view missing footer:\n%s", view)
	}
}

func TestMenuKeyReturnsFromSummary(t *testing.T) {
	app := newTestApp(t)
	app.state = stateDone
	app.mode = run.ModeVerify
	app.summary = run.Summary{Mode: run.ModeVerify, Verified: &verify.Result{OK: true}}

	model, _ := app.Update(keyMsg("m"))
	app = model.(*App)
	if app.state != stateMenu {
		t.Fatalf("expected menu state, got %d", app.state)
	}
}

func TestQuitItemQuits(t *testing.T) {
	app := newTestApp(t)
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app.menu.Select(3)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected tea.QuitMsg, got %T", msg)
	}
}
