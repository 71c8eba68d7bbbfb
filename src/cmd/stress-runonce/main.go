package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"snipper/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-runonce",
		Short:         "Stress test run-once delegation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "full", "full|area|stored: capture mode requested from the resident")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

// requestMode maps the --mode flag to the wire mode; "stored" leaves the choice to the resident.
func requestMode(mode string) string {
	if mode == "stored" {
		return ""
	}
	return mode
}

type tally struct {
	ok, busy, failed int32
}

func (t *tally) record(delegated bool, err error) {
	switch {
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
		atomic.AddInt32(&t.busy, 1)
	case err != nil, !delegated:
		atomic.AddInt32(&t.failed, 1)
	default:
		atomic.AddInt32(&t.ok, 1)
	}
}

func runWithOptions(opts stressOptions) error {
	var wg sync.WaitGroup
	var counts tally

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			client := singleinstance.NewClient()
			delegated, _, err := client.TryRunOnce(ctx, requestMode(opts.mode))
			counts.record(delegated, err)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "launched=%d ok=%d busy=%d err=%d elapsed=%s\n", opts.n, counts.ok, counts.busy, counts.failed, elapsed)
	return nil
}
