package ui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"
)

// openLogPager shows the application log in ov. The bubbletea program
// releases the terminal for the pager's lifetime and restores it after.
func (m *Model) openLogPager() tea.Cmd {
	if m.program == nil || m.logPath == "" {
		return nil
	}
	m.inPagerMode = true
	program := m.program
	path := m.logPath
	return func() tea.Msg {
		return logPagerMsg{err: showFileInPager(program, path)}
	}
}

func showFileInPager(program *tea.Program, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if err := program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// Small delay so ov has fully exited before the screen is redrawn
		time.Sleep(100 * time.Millisecond)
		_ = program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(f)
	if err != nil {
		return err
	}

	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
