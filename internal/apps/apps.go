// Package apps discovers installed desktop applications and launches
// them. All functions here do blocking filesystem or process work and
// must be called from a worker, never from a sandbox loop.
package apps

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
)

// Application is one discovered application.
type Application struct {
	ID   string // desktop file id
	Name string
	Exec string
	Icon string // icon name or path, may be empty
}

// DeltaKind tags a change against the caller's view of the list.
type DeltaKind string

const (
	DeltaAdd    DeltaKind = "add"
	DeltaRemove DeltaKind = "remove"
)

// Delta is one structured add/remove change. Raw OS handles never cross
// this boundary.
type Delta struct {
	Kind DeltaKind
	ID   string
	App  *Application // set for add
}

// Service scans application directories and tracks what each caller has
// already seen, so repeated scans yield deltas rather than snapshots.
type Service struct {
	mu   sync.Mutex
	dirs []string
	seen map[string]Application
}

// NewService creates a service over the platform's application dirs.
func NewService() *Service {
	return &Service{dirs: applicationDirs(), seen: make(map[string]Application)}
}

// NewServiceWithDirs is used by tests and non-standard layouts.
func NewServiceWithDirs(dirs []string) *Service {
	return &Service{dirs: dirs, seen: make(map[string]Application)}
}

// Scan walks the application dirs and returns the changes since the
// previous scan. The first scan returns everything as adds.
func (s *Service) Scan() ([]Delta, error) {
	current := make(map[string]Application)
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // missing dirs are normal
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".desktop") {
				continue
			}
			app, ok := parseDesktopFile(filepath.Join(dir, entry.Name()))
			if !ok {
				continue
			}
			app.ID = strings.TrimSuffix(entry.Name(), ".desktop")
			current[app.ID] = app
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deltas []Delta
	for id, app := range current {
		if _, ok := s.seen[id]; !ok {
			a := app
			deltas = append(deltas, Delta{Kind: DeltaAdd, ID: id, App: &a})
		}
	}
	for id := range s.seen {
		if _, ok := current[id]; !ok {
			deltas = append(deltas, Delta{Kind: DeltaRemove, ID: id})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ID < deltas[j].ID })

	s.seen = current
	return deltas, nil
}

// Launch starts the application detached: new session, no inherited
// stdio, not waited on.
func (s *Service) Launch(id string) error {
	s.mu.Lock()
	app, ok := s.seen[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown application %q", id)
	}

	argv := strings.Fields(stripFieldCodes(app.Exec))
	if len(argv) == 0 {
		return fmt.Errorf("application %q has no exec line", id)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %q: %w", id, err)
	}
	go func() {
		// reap so the child does not linger as a zombie
		if err := cmd.Wait(); err != nil {
			log.Printf("apps: %s exited: %v", id, err)
		}
	}()
	return nil
}

// Icon returns the raw icon bytes for an application if its icon field
// points at a readable file, capped at 1 MiB.
func (s *Service) Icon(id string) ([]byte, error) {
	s.mu.Lock()
	app, ok := s.seen[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown application %q", id)
	}
	if app.Icon == "" || !filepath.IsAbs(app.Icon) {
		return nil, nil
	}
	info, err := os.Stat(app.Icon)
	if err != nil || info.Size() > 1<<20 {
		return nil, nil
	}
	return os.ReadFile(app.Icon)
}

func applicationDirs() []string {
	switch runtime.GOOS {
	case "linux":
		dirs := []string{"/usr/share/applications", "/usr/local/share/applications"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".local/share/applications"))
		}
		return dirs
	default:
		return nil
	}
}

// parseDesktopFile reads the [Desktop Entry] section of a .desktop file.
func parseDesktopFile(path string) (Application, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Application{}, false
	}
	defer f.Close()

	var app Application
	inEntry := false
	hidden := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "Name":
			if app.Name == "" {
				app.Name = value
			}
		case "Exec":
			app.Exec = value
		case "Icon":
			app.Icon = value
		case "NoDisplay", "Hidden":
			if value == "true" {
				hidden = true
			}
		}
	}

	if hidden || app.Name == "" || app.Exec == "" {
		return Application{}, false
	}
	return app, true
}

// stripFieldCodes removes the %f/%u style placeholders desktop entries
// embed in their Exec lines.
func stripFieldCodes(execLine string) string {
	fields := strings.Fields(execLine)
	out := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "%") && len(f) == 2 {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
