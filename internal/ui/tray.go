package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

type Tray struct {
	logger *slog.Logger

	statusItem      *systray.MenuItem
	collectionsItem *systray.MenuItem
	sceneItem       *systray.MenuItem

	mu sync.Mutex

	onExportAll func() error
	onQuit      func()
}

type TrayConfig struct {
	Logger      *slog.Logger
	OnExportAll func() error
	OnQuit      func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger:      cfg.Logger,
		onExportAll: cfg.OnExportAll,
		onQuit:      cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Meshport")
	systray.SetTooltip("Meshport Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.sceneItem = systray.AddMenuItem("Scene: none", "Connected scene")
	t.sceneItem.Disable()

	t.collectionsItem = systray.AddMenuItem("Collections: 0", "Export collections in the scene")
	t.collectionsItem.Disable()

	systray.AddSeparator()

	exportItem := systray.AddMenuItem("Export All", "Export every collection in the scene")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Meshport Agent")

	go func() {
		for {
			select {
			case <-exportItem.ClickedCh:
				t.handleExportAll()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleExportAll() {
	t.UpdateStatus("Exporting")
	if t.onExportAll != nil {
		if err := t.onExportAll(); err != nil {
			t.logger.Error("tray export failed", "error", err)
		}
	}
	t.UpdateStatus("Idle")
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateScene(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if name == "" {
		name = "none"
	}
	t.sceneItem.SetTitle("Scene: " + name)
}

func (t *Tray) UpdateCollectionsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.collectionsItem.SetTitle(fmt.Sprintf("Collections: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
