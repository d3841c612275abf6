package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tinialabs/react-birch-sub000/host/sqlhost"
)

func init() {
	rootCmd.AddCommand(newImportCmd())
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <source> <database>",
		Short: "Copy a tree into a SQLite database",
		Long: `The import command walks every record of a source and stores it in a
SQLite database that birchctl can open as a source later.

Example:
  birchctl import ./project project.db
  birchctl tree project.db --depth 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args)
		},
	}
}

func runImport(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	src, err := openSource(s, args[0])
	if err != nil {
		return err
	}
	defer src.close()

	db, err := sqlhost.Open(args[1], src.root)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := db.Import(ctx, src.host, src.root, "")
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	printInfo("imported %s records from %s into %s\n", humanize.Comma(int64(n)), src.root, args[1])
	return nil
}
