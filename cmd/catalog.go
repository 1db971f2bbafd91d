package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pg-selective-restore/internal/display"
	"pg-selective-restore/internal/restore"
)

var catalogOutput string

var catalogCmd = &cobra.Command{
	Use:   "catalog <dumpfile>",
	Short: "Print the rewritten catalog without restoring",
	Long: `Produce the filtered pg_restore catalog for a dump file and print it to
stdout (or write it to a file with --output). Dropped entries stay in the
catalog as comments, so the output shows exactly what a restore would skip.

This is the dry-run companion of the restore command.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogOutput, "output", "o", "", "write the catalog to this file instead of stdout")

	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	dumpFile := args[0]

	cfg, err := loadOfflineConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	// The catalog itself goes to stdout, so the summary moves to stderr
	// to keep redirected output clean.
	colors := display.NewColorSystem(display.GetThemeByName(cfg.Display.Theme))
	printer := display.NewPrinter(colors, os.Stderr)
	printer.SetQuiet(cfg.Display.Quiet)

	toolset, err := buildToolset(cfg, logger)
	if err != nil {
		return err
	}

	service := restore.NewService(toolset, nil, logger)
	catalog, stats, err := service.PrepareCatalog(cmd.Context(), dumpFile, cfg.Filter)
	if err != nil {
		printer.Error("Catalog preparation failed: %v", err)
		return err
	}

	if catalogOutput != "" {
		if err := os.WriteFile(catalogOutput, []byte(catalog), 0o644); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		printer.Success("Catalog written to %s", catalogOutput)
	} else {
		fmt.Print(catalog)
	}

	printer.FilterSummary(stats)
	return nil
}
