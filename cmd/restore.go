package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pg-selective-restore/internal/database"
	"pg-selective-restore/internal/errors"
	"pg-selective-restore/internal/restore"
)

var (
	singleTransaction bool
	restoreJobs       int
	vacuumAfter       bool
	workDir           string
	keepCatalog       bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <dumpfile>",
	Short: "Selectively restore a dump into the target database",
	Long: `Restore a PostgreSQL custom-format dump, keeping only the entries the
configured filter allows. The archive catalog is listed with pg_restore -l,
rewritten (dropped lines commented out with a leading ";"), and handed back
to pg_restore through -L.

Without any schema or table filters the catalog passes through unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&singleTransaction, "single-transaction", "1", false, "run the restore in a single transaction")
	restoreCmd.Flags().IntVarP(&restoreJobs, "jobs", "j", 0, "number of parallel restore jobs")
	restoreCmd.Flags().BoolVar(&vacuumAfter, "vacuum", false, "run VACUUM ANALYZE after the restore")
	restoreCmd.Flags().StringVar(&workDir, "work-dir", "", "directory for the rewritten catalog file")
	restoreCmd.Flags().BoolVar(&keepCatalog, "keep-catalog", false, "keep the rewritten catalog file after the restore")

	viper.BindPFlag("restore.single_transaction", restoreCmd.Flags().Lookup("single-transaction"))
	viper.BindPFlag("restore.jobs", restoreCmd.Flags().Lookup("jobs"))
	viper.BindPFlag("restore.vacuum_after", restoreCmd.Flags().Lookup("vacuum"))
	viper.BindPFlag("restore.work_dir", restoreCmd.Flags().Lookup("work-dir"))

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	dumpFile := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	printer := buildPrinter(cfg)
	confirmer := buildConfirmer(cfg)

	if _, err := os.Stat(dumpFile); err != nil {
		return fmt.Errorf("dump file not found: %s", dumpFile)
	}

	toolset, err := buildToolset(cfg, logger)
	if err != nil {
		return err
	}

	dbService := database.NewServiceWithLogger(logger)
	service := restore.NewService(toolset, dbService, logger)

	// Report cleanly if the run is interrupted mid-restore
	shutdown := errors.NewGracefulShutdownHandler()
	shutdown.RegisterShutdownFunc(func() error {
		printer.Warning("Restore interrupted")
		return nil
	})
	shutdown.Start()
	defer shutdown.Stop()

	// Restoring overwrites objects in the target database
	ok, err := confirmer.Confirm(fmt.Sprintf("Restore %s into database %q?", dumpFile, cfg.Database.Database))
	if err != nil {
		return err
	}
	if !ok {
		printer.Warning("Restore cancelled")
		return nil
	}

	result, err := service.Run(cmd.Context(), restore.Options{
		Conn:              connArgs(cfg),
		DumpFile:          dumpFile,
		Filter:            cfg.Filter,
		SingleTransaction: cfg.Restore.SingleTransaction,
		Jobs:              cfg.Restore.Jobs,
		VacuumAfter:       cfg.Restore.VacuumAfter,
		WorkDir:           cfg.Restore.WorkDir,
	})
	if err != nil {
		printer.Error("Restore failed: %v", err)
		return err
	}

	if !keepCatalog {
		if err := os.Remove(result.CatalogFile); err != nil {
			logger.Warnf("could not remove catalog file %s: %v", result.CatalogFile, err)
		}
	} else {
		printer.Info("Catalog file kept at %s", result.CatalogFile)
	}

	printer.FilterSummary(result.Stats)
	printer.Success("Restored %q in %s", cfg.Database.Database, result.Duration.Round(roundTo))
	if result.VacuumDuration > 0 {
		printer.Info("VACUUM ANALYZE took %s", result.VacuumDuration.Round(roundTo))
	}

	return nil
}

// sourceCmd loads a plain SQL file into the target database through psql
var sourceCmd = &cobra.Command{
	Use:   "source <file.sql>",
	Short: "Load a SQL file into the target database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := buildLogger(cfg)
		if err != nil {
			return err
		}
		printer := buildPrinter(cfg)

		toolset, err := buildToolset(cfg, logger)
		if err != nil {
			return err
		}

		service := restore.NewService(toolset, nil, logger)
		if err := service.SourceFile(cmd.Context(), connArgs(cfg), args[0]); err != nil {
			printer.Error("Sourcing failed: %v", err)
			return err
		}

		printer.Success("Sourced %s into %q", args[0], cfg.Database.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
}
