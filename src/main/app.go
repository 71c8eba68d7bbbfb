package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/kbinani/screenshot"

	"snipper/src/capture"
	"snipper/src/eventloop"
	"snipper/src/geometry"
	"snipper/src/hotkey"
	"snipper/src/notification"
	"snipper/src/output"
	"snipper/src/overlay"
	"snipper/src/platform"
	"snipper/src/runtimeinit"
	"snipper/src/session"
	"snipper/src/settings"
	"snipper/src/singleinstance"
	"snipper/src/tray"
)

const appID = "app.snipper"

// ownWindowSettle lets the window server drop the just-closed overlay before capturing.
const ownWindowSettle = 60 * time.Millisecond

// captureStack is everything between a target and a saved file.
type captureStack struct {
	backend   capture.Backend
	pipeline  *capture.Pipeline
	finalizer *output.Finalizer
}

func newCaptureStack(rt *runtimeinit.Runtime, store settings.Store) *captureStack {
	cfg := rt.Config
	f := &output.Finalizer{
		File: output.NewDir(func() string {
			if cfg.SaveDir != "" {
				return cfg.SaveDir
			}
			return store.SavePath()
		}),
		Sound: output.NewSound(cfg.SoundEnabled),
	}
	if w := rt.ClipboardWriter(); w != nil {
		f.Clipboard = w
	}

	p := capture.New(capture.Options{
		Backend:    rt.Backend,
		Permission: platform.ScreenRecording{},
		UI:         geometry.TopLeft,
		RetryDelay: cfg.PermissionRetry,
		OnState: func(s capture.State) {
			log.Printf("capture: %s", s)
		},
	})
	return &captureStack{backend: rt.Backend, pipeline: p, finalizer: f}
}

func (s *captureStack) areaSupported() bool { return s.backend.Capabilities().Area }

// run captures target and delivers it. Called on a worker goroutine.
func (s *captureStack) run(ctx context.Context, target capture.Target) (session.Result, error) {
	return session.Produce(ctx, target, s.pipeline.Capture, s.finalizer)
}

func (s *captureStack) newController(a fyne.App, store settings.Store) *overlay.Controller {
	surface := overlay.NewFyneSurface(a, s.backend.Displays)
	surface.Place = platform.PlaceWindow
	surface.Cursor = platform.CursorLocation
	surface.Activator = platform.ActivateApp
	ctrl := overlay.NewController(surface, s.backend.Displays, store)
	ctrl.Beep = platform.Beep
	if s.areaSupported() {
		ctrl.Snapshot = snapshot
	}
	return ctrl
}

// withOverlay runs execute with the overlay available, driving the UI loop on this goroutine.
func (s *captureStack) withOverlay(store settings.Store, execute func(context.Context, session.SelectFunc) error) error {
	a := app.NewWithID(appID)
	ctrl := s.newController(a, store)
	errCh := make(chan error, 1)
	go func() {
		errCh <- execute(context.Background(), ctrl.Select)
		fyne.Do(a.Quit)
	}()
	a.Run()
	return <-errCh
}

// snapshot grabs the dimmed overlay background. frame is in top-left global points.
func snapshot(ctx context.Context, frame geometry.Rect) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return screenshot.CaptureRect(frame.ImageRect())
}

func settleOwnWindows() func() {
	time.Sleep(ownWindowSettle)
	return nil
}

// resident is the menu-bar process: tray, hotkey, overlay and run-once server.
type resident struct {
	app    fyne.App
	store  *settings.FileStore
	stack  *captureStack
	loop   *eventloop.Loop
	tray   *tray.Tray
	hotkey string
	quit   context.CancelFunc
}

func newResident(ctx context.Context, rt *runtimeinit.Runtime) (*resident, error) {
	cfg := rt.Config
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	if err := store.Watch(ctx); err != nil {
		log.Printf("settings: not watching %s: %v", store.Path(), err)
	}

	stack := newCaptureStack(rt, store)

	a := app.NewWithID(appID)
	r := &resident{app: a, store: store, stack: stack, hotkey: cfg.Hotkey}
	r.tray = tray.New(store, tray.Actions{
		Capture: func() { r.loop.TriggerCapture() },
		SetMode: func(m settings.Mode) { r.loop.SetMode(m) },
		Quit: func() {
			if r.quit != nil {
				r.quit()
			}
		},
	})
	r.loop = eventloop.New(eventloop.Options{
		Selector:      stack.newController(a, store),
		Modes:         store,
		AreaSupported: stack.areaSupported(),
		Run:           stack.run,
		Deadline:      session.DefaultDeadline,
		Server:        singleinstance.NewServer(),
		Notifier:      notification.New(a),
		Status:        r.tray,
		IdleStatus:    fmt.Sprintf("Snipper (%s)", cfg.Hotkey),
	})

	log.Printf("Snipper initialized")
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Settings: %s", store.Path())
	return r, nil
}

// run blocks in the UI loop until ctx is cancelled or the user quits.
func (r *resident) run(ctx context.Context, cancel context.CancelFunc) error {
	r.quit = cancel
	if err := r.tray.Start(ctx, r.app); err != nil {
		log.Printf("tray: %v", err)
	}
	if err := r.loop.StartHotkey(r.hotkey); err != nil {
		log.Printf("hotkey: %v", err)
	}
	defer hotkey.Stop()

	loopErr := make(chan error, 1)
	go func() {
		err := r.loop.Run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("event loop stopped: %v", err)
		}
		loopErr <- err
		fyne.Do(r.app.Quit)
	}()

	r.app.Run()
	cancel()
	if err := <-loopErr; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
