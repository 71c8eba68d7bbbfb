package tray

import (
	"context"
	"errors"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"snipper/src/settings"
)

var ErrNoSystemTray = errors.New("system tray not supported by this driver")

const defaultStatus = "Snipper"

// Actions are invoked from the UI thread when menu items are chosen.
type Actions struct {
	Capture func()
	SetMode func(settings.Mode)
	Quit    func()
}

// Tray is the menu-bar item: take a screenshot, pick the capture mode, quit.
type Tray struct {
	store   settings.Store
	actions Actions

	mu      sync.Mutex
	menu    *fyne.Menu
	status  *fyne.MenuItem
	about   *fyne.MenuItem
	full    *fyne.MenuItem
	area    *fyne.MenuItem
	refresh func()
}

// New builds the menu. Nothing is shown until Start.
func New(store settings.Store, actions Actions) *Tray {
	t := &Tray{store: store, actions: actions}
	t.status = fyne.NewMenuItem(defaultStatus, nil)
	t.status.Disabled = true
	t.about = fyne.NewMenuItem("", nil)
	t.about.Disabled = true
	t.full = fyne.NewMenuItem("Full Screen", func() { t.choose(settings.ModeFull) })
	t.area = fyne.NewMenuItem("Selected Area", func() { t.choose(settings.ModeArea) })
	capture := fyne.NewMenuItem("Take Screenshot", func() {
		if t.actions.Capture != nil {
			t.actions.Capture()
		}
	})
	quit := fyne.NewMenuItem("Quit Snipper", func() {
		if t.actions.Quit != nil {
			t.actions.Quit()
		}
	})
	quit.IsQuit = true

	t.menu = fyne.NewMenu("Snipper",
		t.status,
		fyne.NewMenuItemSeparator(),
		capture,
		fyne.NewMenuItemSeparator(),
		t.full,
		t.area,
		fyne.NewMenuItemSeparator(),
		t.about,
		quit,
	)
	t.applyMode(store.CaptureMode())
	return t
}

// Start installs the icon and menu on a, and keeps the mode checkmarks in sync with the
// store until ctx is done.
func (t *Tray) Start(ctx context.Context, a fyne.App) error {
	desk, ok := a.(desktop.App)
	if !ok {
		return ErrNoSystemTray
	}
	t.mu.Lock()
	t.refresh = func() { fyne.Do(t.menu.Refresh) }
	t.mu.Unlock()

	fyne.Do(func() {
		desk.SetSystemTrayIcon(Icon)
		desk.SetSystemTrayMenu(t.menu)
	})

	changes, unsubscribe := t.store.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if c.Key == settings.KeyCaptureMode {
					t.applyMode(c.Mode)
				}
			}
		}
	}()
	return nil
}

// UpdateStatus replaces the status line at the top of the menu. Empty restores the default.
func (t *Tray) UpdateStatus(text string) {
	if text == "" {
		text = defaultStatus
	}
	t.mu.Lock()
	t.status.Label = text
	t.mu.Unlock()
	t.doRefresh()
}

// SetAboutExtra shows an informational line above Quit.
func (t *Tray) SetAboutExtra(text string) {
	t.mu.Lock()
	t.about.Label = text
	t.mu.Unlock()
	t.doRefresh()
}

func (t *Tray) choose(mode settings.Mode) {
	if t.actions.SetMode != nil {
		t.actions.SetMode(mode)
		return
	}
	if err := t.store.SetCaptureMode(mode); err != nil {
		log.Printf("tray: failed to set capture mode: %v", err)
	}
}

func (t *Tray) applyMode(mode settings.Mode) {
	t.mu.Lock()
	t.full.Checked = mode == settings.ModeFull
	t.area.Checked = mode == settings.ModeArea
	t.mu.Unlock()
	t.doRefresh()
}

func (t *Tray) doRefresh() {
	t.mu.Lock()
	refresh := t.refresh
	t.mu.Unlock()
	if refresh != nil {
		refresh()
	}
}
