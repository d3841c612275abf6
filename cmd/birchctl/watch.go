package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinialabs/react-birch-sub000/tree/printer"
)

var (
	watchFor    time.Duration
	watchExpand []string
)

func init() {
	cmd := newWatchCmd()
	cmd.Flags().DurationVar(&watchFor, "for", 0, "Stop after this long (0 waits for an interrupt)")
	cmd.Flags().StringSliceVarP(&watchExpand, "expand", "e", nil, "Expand these paths first")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-print a directory tree whenever it changes",
		Long: `The watch command serves a directory, prints its surfaced rows and prints
them again after every change to the flattened view, until interrupted.

Example:
  birchctl watch ./project --expand src`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, args)
		},
	}
}

func runWatch(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	s.Source = sourceFS
	r, _, cleanup, err := openTree(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer cleanup()
	if err := expandPaths(ctx, r, watchExpand); err != nil {
		return err
	}

	if watchFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchFor)
		defer cancel()
	}

	changed := make(chan struct{}, 1)
	unsub := r.OnBranchDidUpdate(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	opts := printer.DefaultOptions()
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	p := printer.New(r, os.Stdout, opts)
	if err := p.PrintSurface(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			printInfo("--- %s\n", time.Now().Format(time.TimeOnly))
			if err := p.PrintSurface(); err != nil {
				return fmt.Errorf("failed to display tree: %w", err)
			}
		}
	}
}
