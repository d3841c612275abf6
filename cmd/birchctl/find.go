package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var findReveal bool

func init() {
	cmd := newFindCmd()
	cmd.Flags().BoolVar(&findReveal, "reveal", true, "Expand ancestors so the node is surfaced")
	rootCmd.AddCommand(cmd)
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <source> <path>",
		Short: "Load a path and report where it surfaces",
		Long: `The find command loads every folder on the way to a path and prints the
node's surface index, id and tid.

Example:
  birchctl find ./project src/components/Header/Header.tsx
  birchctl find fixture.yaml /app/src --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), args)
		},
	}
}

type findResult struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Index   int    `json:"index"`
	ID      string `json:"id"`
	TID     string `json:"tid,omitempty"`
	Depth   int    `json:"depth"`
	Visible bool   `json:"visible"`
}

func runFind(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	r, _, cleanup, err := openTree(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := r.ForceLoadItemEntryAtPath(ctx, resolvePath(r, args[1]))
	if err != nil {
		return fmt.Errorf("find %s: %w", args[1], err)
	}
	if p := n.Parent(); findReveal && p != nil && !p.IsRoot() {
		if err := r.ExpandFolder(ctx, p, true); err != nil {
			return err
		}
	}

	res := findResult{
		Path:    n.Path(),
		Type:    n.Kind().String(),
		Index:   r.IndexOfItemEntry(n),
		ID:      n.ID().String(),
		TID:     n.Item().TID,
		Depth:   n.Depth(),
		Visible: r.IsItemVisibleAtSurface(n),
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("%s\n", res.Path)
	printInfo("  type:  %s\n", res.Type)
	printInfo("  index: %d of %d\n", res.Index, r.BranchSize())
	printInfo("  id:    %s\n", res.ID)
	if res.TID != "" {
		printInfo("  tid:   %s\n", res.TID)
	}
	return nil
}
