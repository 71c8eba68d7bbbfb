package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"snipper/src/config"
	"snipper/src/logutil"
	"snipper/src/notification"
	"snipper/src/runtimeinit"
	"snipper/src/session"
	"snipper/src/settings"
	"snipper/src/singleinstance"
)

// runOnceStored is the --run-once value meaning "use the resident's stored mode".
const runOnceStored = "stored"

type mainOptions struct {
	runOnce        string
	saveDir        string
	captureBackend string
	settingsPath   string
}

type runOnceClient interface {
	TryRunOnce(ctx context.Context, mode string) (bool, string, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snipper",
		Short:         "Menu-bar screenshot tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var logPath string
			rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
				LoadOptions: config.LoadOptions{
					SaveDirOverride:        opts.saveDir,
					CaptureBackendOverride: opts.captureBackend,
					SettingsPathOverride:   opts.settingsPath,
				},
				SetupLogging: func(enable bool) {
					logPath = logutil.Setup(enable, logutil.DefaultDir())
				},
				Exclude:           settleOwnWindows,
				ShowBlockingError: true,
			})
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("run-once") {
				mode, err := runOnceMode(opts.runOnce)
				if err != nil {
					return err
				}
				return handleRunOnceWithDelegation(mode, singleinstance.NewClient(), func() error {
					return runCaptureOnce(rt, mode)
				})
			}
			return runResident(rt, logPath)
		},
	}

	cmd.Flags().StringVar(&opts.runOnce, "run-once", "", "Capture once and exit: full, area, or the stored mode when no value is given")
	cmd.Flags().Lookup("run-once").NoOptDefVal = runOnceStored
	cmd.Flags().StringVar(&opts.saveDir, "save-dir", "", "Directory for screenshots (overrides the stored save path)")
	cmd.Flags().StringVar(&opts.captureBackend, "capture-backend", "", "Capture backend: auto, modern, or legacy")
	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to settings.json")

	return cmd
}

// runOnceMode validates a --run-once value. The stored mode maps to "".
func runOnceMode(value string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "", runOnceStored:
		return "", nil
	case string(settings.ModeFull), string(settings.ModeArea):
		return v, nil
	default:
		return "", fmt.Errorf("invalid --run-once value %q (want full or area)", value)
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"snipper"}
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"run-once", "save-dir", "capture-backend", "settings"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

// handleRunOnceWithDelegation prefers the resident instance and falls back to a local capture.
// A resident that answered with an error is final; only an unreachable one triggers the fallback.
func handleRunOnceWithDelegation(mode string, client runOnceClient, fallback func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	delegated, path, err := client.TryRunOnce(ctx, mode)
	switch {
	case delegated && err != nil:
		log.Printf("Resident reported: %v", err)
		return err
	case delegated:
		log.Printf("Delegated to resident")
		if path != "" {
			fmt.Println(path)
		}
		return nil
	case err != nil:
		log.Printf("Delegation error: %v; falling back to standalone", err)
	default:
		log.Printf("No resident detected (not delegated), running standalone")
	}
	return fallback()
}

// runResident is the long-running menu-bar process.
func runResident(rt *runtimeinit.Runtime, logPath string) error {
	// A second resident would fight over the hotkey and the single-instance port.
	detectCtx, detectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	port, found := singleinstance.DetectResidentPort(detectCtx)
	detectCancel()
	if found {
		log.Printf("Pre-flight: resident already answering on port %d", port)
		fmt.Printf("one is already running on port %d\n", port)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newResident(ctx, rt)
	if err != nil {
		notification.ShowBlockingError("Snipper failed to start", err.Error())
		return err
	}
	if logPath != "" {
		a.tray.SetAboutExtra("Log: " + logPath)
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	return a.run(ctx, cancel)
}

// runCaptureOnce captures without a resident and prints the saved path.
func runCaptureOnce(rt *runtimeinit.Runtime, mode string) error {
	store, err := settings.Open(rt.Config.SettingsPath)
	if err != nil {
		log.Printf("settings unavailable, using defaults: %v", err)
		return runStandalone(rt, settings.NewMemory(settings.ParseMode(mode), ""), mode)
	}
	return runStandalone(rt, store, mode)
}

func runStandalone(rt *runtimeinit.Runtime, store settings.Store, mode string) error {
	m := store.CaptureMode()
	if mode != "" {
		m = settings.ParseMode(mode)
	}
	stack := newCaptureStack(rt, store)

	execute := func(ctx context.Context, sel session.SelectFunc) error {
		_, err := session.Execute(ctx, session.Options{
			Mode:          m,
			AreaSupported: stack.areaSupported(),
			Select:        sel,
			Capture:       stack.pipeline.Capture,
			Deliver:       stack.finalizer,
			Target:        session.StdoutTarget{},
		})
		return err
	}

	if m != settings.ModeArea || !stack.areaSupported() {
		return execute(context.Background(), nil)
	}
	// The overlay needs the UI run loop on the main goroutine.
	return stack.withOverlay(store, execute)
}
