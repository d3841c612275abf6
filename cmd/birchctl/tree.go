package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinialabs/react-birch-sub000/tree"
	"github.com/tinialabs/react-birch-sub000/tree/decoration"
	"github.com/tinialabs/react-birch-sub000/tree/printer"
)

var (
	treeDepth   int
	treeExpand  []string
	treeMark    []string
	treeIDs     bool
	treeFull    bool
	treeVerify  bool
	treeCompact bool
)

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVar(&treeDepth, "depth", 0, "Expand every folder down to this depth")
	cmd.Flags().StringSliceVarP(&treeExpand, "expand", "e", nil, "Expand these paths (relative to the root or absolute)")
	cmd.Flags().StringSliceVar(&treeMark, "mark", nil, "Decorate these paths and everything below them")
	cmd.Flags().BoolVar(&treeIDs, "ids", false, "Show surface indexes and node ids")
	cmd.Flags().BoolVar(&treeFull, "full", false, "Print every loaded node, not only surfaced rows")
	cmd.Flags().BoolVar(&treeVerify, "verify", false, "Check tree invariants after expanding")
	cmd.Flags().BoolVar(&treeCompact, "compact", false, "Compact output")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <source>",
		Short: "Display the surfaced rows of a tree",
		Long: `The tree command loads a source, expands the requested folders and
prints the rows a virtualized renderer would show, in index order.

Example:
  birchctl tree ./project --depth 2
  birchctl tree fixture.yaml --expand src/components --ids
  birchctl tree items.db --full --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd.Context(), args)
		},
	}
	return cmd
}

func runTree(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}
	r, _, cleanup, err := openTree(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	if treeDepth > 0 {
		if err := expandToDepth(ctx, r, r.Root(), treeDepth); err != nil {
			return err
		}
	}
	if err := expandPaths(ctx, r, append(s.Expand, treeExpand...)); err != nil {
		return err
	}

	opts := printer.DefaultOptions()
	opts.ShowIDs = treeIDs
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	if treeCompact {
		opts.IndentSize = 1
	}
	if len(treeMark) > 0 {
		m, err := markPaths(ctx, r, treeMark)
		if err != nil {
			return err
		}
		defer m.Dispose()
		opts.Decorations = m
	}

	p := printer.New(r, os.Stdout, opts)
	if treeFull {
		err = p.PrintTree(r.Root())
	} else {
		err = p.PrintSurface()
	}
	if err != nil {
		return fmt.Errorf("failed to display tree: %w", err)
	}

	if treeVerify {
		if err := r.Verify(); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		printStatus("verify: ok (%d surfaced, %d nodes)\n", r.BranchSize(), r.Len())
	}
	return nil
}

// markPaths decorates each path and its descendants with "marked".
func markPaths(ctx context.Context, r *tree.Root, paths []string) (*decoration.Manager, error) {
	m, err := decoration.NewManager(r)
	if err != nil {
		return nil, err
	}
	marked := decoration.New("marked")
	for _, p := range paths {
		n, err := r.ForceLoadItemEntryAtPath(ctx, resolvePath(r, p))
		if err != nil {
			m.Dispose()
			return nil, fmt.Errorf("mark %s: %w", p, err)
		}
		marked.AddTarget(n, decoration.SelfAndChildren)
	}
	if err := m.AddDecoration(marked); err != nil {
		m.Dispose()
		return nil, err
	}
	return m, nil
}
