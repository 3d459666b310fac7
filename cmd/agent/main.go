package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/meshport/meshport-agent/internal/api"
	"github.com/meshport/meshport-agent/internal/config"
	"github.com/meshport/meshport-agent/internal/db"
	"github.com/meshport/meshport-agent/internal/export"
	"github.com/meshport/meshport-agent/internal/exporter"
	"github.com/meshport/meshport-agent/internal/logging"
	"github.com/meshport/meshport-agent/internal/metrics"
	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/registry"
	"github.com/meshport/meshport-agent/internal/scene"
	"github.com/meshport/meshport-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting meshport agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	store := registry.NewStore(database.Conn())

	authToken, err := ensureAuthToken(store)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	if err := seedProjectRoot(store, cfg.ProjectRoot()); err != nil {
		return fmt.Errorf("failed to seed project root: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                   MESHPORT AGENT v%-8s                ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presets := preset.NewStore()
	if cfg.PresetsFile() != "" {
		if err := presets.LoadFile(cfg.PresetsFile()); err != nil {
			logger.Warn("failed to load presets file, using builtins", "error", err)
		}
		watcher, err := preset.NewWatcher(presets, cfg.PresetsFile(), logger)
		if err != nil {
			logger.Warn("preset hot reload unavailable", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	sceneStore := scene.NewStateStore()
	registrySvc := registry.NewService(store, presets, sceneStore, logger)

	var exporters exporter.Set
	if cfg.ExportTool() != "" {
		exporters, err = exporter.NewToolSet(exporter.ToolConfig{
			ToolPath: cfg.ExportTool(),
			Timeout:  cfg.ExportTimeout(),
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("export tool unavailable, using stub exporters", "error", err)
			exporters = exporter.NewStubSet(logger)
		}
	} else {
		exporters = exporter.NewStubSet(logger)
	}

	m := metrics.New()
	orchestrator := export.NewOrchestrator(registrySvc, exporters, m, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Registry:     registrySvc,
		Store:        store,
		Scene:        sceneStore,
		Presets:      presets,
		Orchestrator: orchestrator,
		Metrics:      m,
		Logger:       logger,
		StartTime:    startTime,
		Version:      config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Logger: logger,
			OnExportAll: func() error {
				root, err := store.GetConfig(ctx, "project_root")
				if err != nil {
					return err
				}
				report, err := orchestrator.Export(ctx, export.All(), root, sceneStore.CurrentScenePath())
				if err != nil {
					return err
				}
				logger.Info("tray export finished", "summary", report.Summary())
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(store registry.Store) (string, error) {
	ctx := context.Background()

	existing, err := store.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := store.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}

// seedProjectRoot writes the env-provided project root into the config store
// on first run. A root already configured through the API wins.
func seedProjectRoot(store registry.Store, root string) error {
	if root == "" {
		return nil
	}

	ctx := context.Background()
	existing, err := store.GetConfig(ctx, "project_root")
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	return store.SetConfig(ctx, "project_root", filepath.Clean(root))
}
