package cmd

import (
	"github.com/spf13/cobra"

	"pg-selective-restore/internal/archive"
	"pg-selective-restore/internal/restore"
)

var (
	dumpOutput string
	dumpForce  bool
	dumpFormat string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the target database with pg_dump",
	Long: `Create a custom-format dump of the target database. When archiving is
enabled in the configuration, the dump is also compressed, optionally
encrypted, and uploaded to the configured archive store.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "output dump file (required)")
	dumpCmd.Flags().BoolVarP(&dumpForce, "force", "f", false, "overwrite an existing output file")
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "", "pg_dump format flag (default -Fc)")
	dumpCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
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

	var packer *archive.Packer
	var store archive.Store
	if cfg.Archive.Enabled {
		packer, err = archive.NewPacker(cfg.Archive.Compression, cfg.Archive.Encryption)
		if err != nil {
			return err
		}
		store, err = archive.NewStore(cmd.Context(), &cfg.Archive.Storage)
		if err != nil {
			return err
		}
	}

	service := restore.NewDumpService(toolset, packer, store, logger)
	result, err := service.Dump(cmd.Context(), restore.DumpOptions{
		Conn:       connArgs(cfg),
		OutputFile: dumpOutput,
		Force:      dumpForce,
		Format:     dumpFormat,
	})
	if err != nil {
		printer.Error("Dump failed: %v", err)
		return err
	}

	printer.Success("Dumped %q to %s (%d bytes) in %s",
		cfg.Database.Database, result.OutputFile, result.Size, result.Duration.Round(roundTo))
	if result.ArchiveID != "" {
		printer.Info("Archived as %s", result.ArchiveID)
	}

	return nil
}
