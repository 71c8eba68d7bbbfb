package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snipper/src/capture"
	"snipper/src/clipboard"
	"snipper/src/config"
	"snipper/src/geometry"
	"snipper/src/output"
	"snipper/src/platform"
	"snipper/src/runtimeinit"
	"snipper/src/session"
	"snipper/src/settings"
)

type cliOptions struct {
	rect        string
	outDir      string
	jsonOutput  bool
	verbose     bool
	clipboard   bool
	backend     string
	listDisplay bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args)
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"snip"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snip",
		Short:         "Capture the screen or a rectangle to a PNG without the menu-bar app",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.rect, "rect", "", "Area to capture as x,y,w,h in screen points (full screen when empty)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (default: the stored save path)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output result as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.clipboard, "clipboard", false, "Also copy the image to the clipboard")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Capture backend: auto, modern, or legacy")
	cmd.Flags().BoolVar(&opts.listDisplay, "list-displays", false, "Print the attached displays and exit")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		SaveDirOverride:        opts.outDir,
		CaptureBackendOverride: opts.backend,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	target := capture.FullScreen()
	if opts.rect != "" {
		r, err := parseRect(opts.rect)
		if err != nil {
			return err
		}
		target = capture.Area(r)
	}

	backend := runtimeinit.NewBackend(cfg.CaptureBackend, nil)

	if opts.listDisplay {
		displays, err := backend.Displays()
		if err != nil {
			return err
		}
		return printDisplays(stdout, displays)
	}

	p := capture.New(capture.Options{
		Backend:    backend,
		Permission: platform.ScreenRecording{},
		UI:         geometry.TopLeft,
		RetryDelay: cfg.PermissionRetry,
	})
	saveDir := cfg.SaveDir
	if saveDir == "" {
		saveDir = defaultSaveDir(cfg)
	}
	f := &output.Finalizer{File: output.NewDir(func() string { return saveDir })}
	if opts.clipboard {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("clipboard unavailable: %w", err)
		}
		f.Clipboard = clipboard.System{}
	}

	start := time.Now()
	res, err := session.Produce(ctx, target, p.Capture, f)
	if err != nil {
		return fmt.Errorf("capture failed (%s): %w", capture.KindOf(err), err)
	}
	return outputResult(stdout, res, time.Since(start), opts.jsonOutput)
}

// defaultSaveDir is the menu-bar app's save path, so both tools write to the same folder.
func defaultSaveDir(cfg *config.Config) string {
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Printf("settings unavailable: %v", err)
		return settings.DefaultSavePath()
	}
	return store.SavePath()
}

// parseRect reads "x,y,w,h".
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("invalid --rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid --rect %q: %w", s, err)
		}
		v[i] = f
	}
	r := geometry.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}.Standardize()
	if r.Empty() {
		return geometry.Rect{}, fmt.Errorf("invalid --rect %q: zero area", s)
	}
	return r, nil
}

type CaptureResult struct {
	Path      string  `json:"path"`
	Target    string  `json:"target"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	SessionID string  `json:"session_id"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
}

func outputResult(w io.Writer, res session.Result, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, res.Path)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(CaptureResult{
		Path:      res.Path,
		Target:    res.Target.String(),
		Width:     res.Width,
		Height:    res.Height,
		SessionID: res.SessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func printDisplays(w io.Writer, displays []geometry.Display) error {
	for _, d := range displays {
		primary := ""
		if d.Primary {
			primary = " primary"
		}
		if _, err := fmt.Fprintf(w, "%d: %s @%gx%s\n", d.ID, d.Frame, d.Scale, primary); err != nil {
			return err
		}
	}
	return nil
}
