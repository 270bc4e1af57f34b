package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lumen/internal/apps"
	"lumen/internal/config"
	"lumen/internal/eventbus"
	"lumen/internal/plugin"
	"lumen/internal/search"
	"lumen/internal/ui"
)

func main() {
	var configPath string
	var pluginDir string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&pluginDir, "plugins", "", "Extra directory to load plugin bundles from")
	flag.Parse()

	// Set up logging
	logPath := "lumen.log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
	} else {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Load configuration
	var configSvc config.Service
	if configPath != "" {
		configSvc = config.NewServiceAt(configPath)
	} else {
		configSvc = config.NewService()
	}
	cfg, err := configSvc.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if pluginDir != "" {
		cfg.PluginDirs = append(cfg.PluginDirs, pluginDir)
	}

	// Create event bus and services
	bus := eventbus.New()
	defer bus.Close()

	// Open the preferences store
	prefs, err := config.OpenPreferencesStoreWithBus(config.DefaultPreferencesPath(), bus)
	if err != nil {
		fmt.Printf("Error loading preferences: %v\n", err)
		os.Exit(1)
	}

	index := search.New(cfg.UISettings.MaxResults, bus)
	appsSvc := apps.NewService()
	if _, err := appsSvc.Scan(); err != nil {
		log.Printf("Initial application scan: %v", err)
	}

	renderTimeout := time.Duration(cfg.UISettings.RenderTimeoutMS) * time.Millisecond
	manager := plugin.NewManager(bus, index, prefs, appsSvc, renderTimeout)
	defer manager.UnloadAll()

	// Load plugin bundles from every configured directory
	for _, dir := range cfg.PluginDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Printf("Skipping plugin dir %s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			bundleDir := filepath.Join(dir, entry.Name())
			bundle, err := manager.LoadPlugin(bundleDir)
			if err != nil {
				log.Printf("Failed to load plugin at %s: %v", bundleDir, err)
				continue
			}
			log.Printf("Loaded plugin %s (%d entrypoints)", bundle.ID, len(bundle.Entrypoints))
		}
	}

	// Create UI model and Bubble Tea program
	uiModel := ui.NewModel(bus, cfg, manager, index, logPath)
	p := tea.NewProgram(uiModel, tea.WithAltScreen())
	uiModel.SetProgram(p)
	defer uiModel.Close()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
