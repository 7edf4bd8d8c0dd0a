// cmd/hulapatch/main.go
//
// Entry point for hulapatch.
//
// Flow:
// 1. Load hulapatch.yaml (if present) and apply environment overrides
// 2. Apply command-line flag overrides
// 3. With --patch/--restore/--verify, run that mode non-interactively
// 4. With no mode flag, launch the TUI

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kingrea/hulapatch/internal/config"
	"github.com/kingrea/hulapatch/internal/report"
	"github.com/kingrea/hulapatch/internal/run"
	"github.com/kingrea/hulapatch/internal/tui"
)

func main() {
	var (
		doPatch   = flag.Bool("patch", false, "back up and patch the installed pyhula package")
		doRestore = flag.Bool("restore", false, "restore the pristine backups")
		doVerify  = flag.Bool("verify", false, "import pyhula and construct a UserApi")
		root      = flag.String("root", "", "pyhula installation directory (skips interpreter discovery)")
		python    = flag.String("python", "", "python interpreter to use for discovery and verification")
		plain     = flag.Bool("plain", false, "disable colored output")
	)
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.InstallRoot = *root
	}
	if *python != "" {
		cfg.Python = *python
	}
	if *plain {
		cfg.Plain = true
	}

	selected := 0
	mode := run.ModeApply
	if *doPatch {
		selected++
	}
	if *doRestore {
		selected++
		mode = run.ModeRestore
	}
	if *doVerify {
		selected++
		mode = run.ModeVerify
	}
	if selected > 1 {
		fmt.Fprintln(os.Stderr, "Choose at most one of --patch, --restore, --verify")
		os.Exit(2)
	}

	if selected == 1 {
		os.Exit(runPlain(cfg, mode))
	}

	p := tea.NewProgram(
		tui.NewApp(cfg),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// runPlain executes one mode without the TUI and returns the exit status.
func runPlain(cfg *config.Config, mode run.Mode) int {
	renderer := report.NewRenderer(cfg.Plain)
	runner := run.New(cfg, run.WithObserver(func(ev run.Event) {
		fmt.Printf("[%s] %s\n", ev.Phase, ev.Message)
	}))

	var summary run.Summary
	switch mode {
	case run.ModeRestore:
		summary = runner.Restore(context.Background())
	case run.ModeVerify:
		summary = runner.Verify(context.Background())
	default:
		summary = runner.Apply(context.Background())
	}

	fmt.Println()
	fmt.Print(renderer.Summary(summary))
	if mode == run.ModeApply {
		for _, res := range summary.Results {
			if diff := renderer.Diff(res); diff != "" {
				fmt.Println()
				fmt.Print(diff)
			}
		}
	}

	if summary.Success() {
		return 0
	}
	return 1
}
