// internal/tui/app.go
//
// Interactive front end for hulapatch. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kingrea/hulapatch/internal/config"
	"github.com/kingrea/hulapatch/internal/report"
	"github.com/kingrea/hulapatch/internal/run"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMenu    appState = iota // Main menu with the three operations
	stateRunning                 // A run is in flight
	stateDone                    // Showing the summary for the last run
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithRunnerOptions forwards options to every Runner the TUI creates.
// Tests use this to inject stub locators and interpreter checkers.
func WithRunnerOptions(opts ...run.Option) AppOption {
	return func(a *App) {
		a.runnerOpts = append(a.runnerOpts, opts...)
	}
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
	mode  run.Mode
	quit  bool
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// runFinishedMsg carries the outcome of a background run back into Update.
type runFinishedMsg struct {
	summary run.Summary
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0AEC0")).
			Italic(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))
)

// App is the main application model. It holds ALL TUI state.
type App struct {
	state      appState
	cfg        *config.Config
	menu       list.Model
	renderer   *report.Renderer
	runnerOpts []run.Option

	mode    run.Mode
	summary run.Summary

	width  int
	height int
}

// NewApp builds the interactive model around a loaded configuration.
func NewApp(cfg *config.Config, opts ...AppOption) *App {
	items := []list.Item{
		menuItem{title: "Apply Patches", desc: "Back up and patch the installed pyhula package", mode: run.ModeApply},
		menuItem{title: "Restore Backup", desc: "Copy the pristine backups back into place", mode: run.ModeRestore},
		menuItem{title: "Verify Installation", desc: "Import pyhula and construct a UserApi", mode: run.ModeVerify},
		menuItem{title: "Exit", desc: "Quit hulapatch", quit: true},
	}
	menu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "⬡ HULAPATCH"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)

	app := &App{
		state:    stateMenu,
		cfg:      cfg,
		menu:     menu,
		renderer: report.NewRenderer(cfg.Plain),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.menu.SetSize(max(0, msg.Width-4), max(0, msg.Height-6))
		return a, nil

	case runFinishedMsg:
		a.summary = msg.summary
		a.state = stateDone
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state != stateRunning {
				return a, tea.Quit
			}
		case "m", "esc":
			if a.state == stateDone {
				a.state = stateMenu
				return a, nil
			}
		case "enter":
			if a.state == stateMenu {
				return a.startSelected()
			}
		}
	}

	if a.state == stateMenu {
		var cmd tea.Cmd
		a.menu, cmd = a.menu.Update(msg)
		return a, cmd
	}
	return a, nil
}

// startSelected launches the run for the highlighted menu entry.
func (a *App) startSelected() (tea.Model, tea.Cmd) {
	item, ok := a.menu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	if item.quit {
		return a, tea.Quit
	}
	a.mode = item.mode
	a.state = stateRunning
	return a, a.runMode(item.mode)
}

// runMode executes a run in the background and reports back via runFinishedMsg.
func (a *App) runMode(mode run.Mode) tea.Cmd {
	cfg := a.cfg
	opts := a.runnerOpts
	return func() tea.Msg {
		runner := run.New(cfg, opts...)
		var summary run.Summary
		switch mode {
		case run.ModeRestore:
			summary = runner.Restore(context.Background())
		case run.ModeVerify:
			summary = runner.Verify(context.Background())
		default:
			summary = runner.Apply(context.Background())
		}
		return runFinishedMsg{summary: summary}
	}
}

func (a *App) View() string {
	switch a.state {
	case stateRunning:
		var label string
		switch a.mode {
		case run.ModeRestore:
			label = "Restoring backups..."
		case run.ModeVerify:
			label = "Verifying installation..."
		default:
			label = "Applying patches..."
		}
		return headerStyle.Render("hulapatch") + "\n\n" + spinnerStyle.Render(label) + "\n"

	case stateDone:
		var b strings.Builder
		b.WriteString(a.renderer.Summary(a.summary))
		if a.mode == run.ModeApply {
			for _, res := range a.summary.Results {
				if diff := a.renderer.Diff(res); diff != "" {
					b.WriteString("\n")
					b.WriteString(diff)
				}
			}
		}
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("m: menu · q: quit"))
		b.WriteString("\n")
		return b.String()

	default:
		return a.menu.View() + "\n" + footerStyle.Render("enter: run · q: quit") + "\n"
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
