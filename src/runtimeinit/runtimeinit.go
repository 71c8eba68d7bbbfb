package runtimeinit

import (
	"fmt"
	"log"

	"snipper/src/capture"
	"snipper/src/clipboard"
	"snipper/src/config"
	"snipper/src/notification"
	"snipper/src/platform"
	"snipper/src/singleinstance"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// Exclude is handed to the modern backend to keep own windows out of captures.
	Exclude           func() (restore func())
	RequireClipboard  bool
	ShowBlockingError bool
}

// Runtime is what every entry point needs after startup.
type Runtime struct {
	Config    *config.Config
	Backend   capture.Backend
	Clipboard bool
}

// Bootstrap loads configuration, sets up logging, applies the single-instance port range,
// picks the capture backend and initializes the clipboard.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	singleinstance.Configure(singleinstance.PortRange{Start: cfg.PortStart, End: cfg.PortEnd})

	rt := &Runtime{Config: cfg, Backend: NewBackend(cfg.CaptureBackend, opts.Exclude)}
	if rt.Backend == nil {
		return nil, fmt.Errorf("no capture backend for %q", cfg.CaptureBackend)
	}
	log.Printf("Capture backend: %s", rt.Backend.Name())

	if err := clipboard.Init(); err != nil {
		if opts.RequireClipboard {
			if opts.ShowBlockingError {
				notification.ShowBlockingError("Clipboard unavailable", err.Error())
			}
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		log.Printf("clipboard unavailable, screenshots are saved to disk only: %v", err)
	} else {
		rt.Clipboard = true
	}

	return rt, nil
}

// NewBackend picks between the modern and legacy backends for this OS.
func NewBackend(preference string, exclude func() func()) capture.Backend {
	modern := capture.NewScreenshotBackend(platform.DisplayScale, exclude)
	legacy := capture.NewLegacyBackend(platform.DisplayScale)
	return capture.SelectBackend(preference, platform.SupportsModernCapture(), modern, legacy)
}

// ClipboardWriter returns the system clipboard sink, or nil when it failed to initialize.
func (rt *Runtime) ClipboardWriter() *clipboard.System {
	if !rt.Clipboard {
		return nil
	}
	return &clipboard.System{}
}
