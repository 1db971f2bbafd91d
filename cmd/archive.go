package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pg-selective-restore/internal/archive"
	"pg-selective-restore/internal/config"
	"pg-selective-restore/internal/display"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage stored dump archives",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives in the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, printer, err := archiveSetup(cmd)
		if err != nil {
			return err
		}

		archives, err := store.List(cmd.Context())
		if err != nil {
			printer.Error("Listing failed: %v", err)
			return err
		}

		printer.ArchiveList(archives)
		return nil
	},
}

var archiveFetchCmd = &cobra.Command{
	Use:   "fetch <id> <outfile>",
	Short: "Download an archive and unpack it into a dump file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, printer, err := archiveSetup(cmd)
		if err != nil {
			return err
		}

		a, err := store.Retrieve(cmd.Context(), args[0])
		if err != nil {
			printer.Error("Retrieval failed: %v", err)
			return err
		}

		packer, err := archive.NewPacker(cfg.Archive.Compression, cfg.Archive.Encryption)
		if err != nil {
			return err
		}
		data, err := packer.Unpack(a)
		if err != nil {
			printer.Error("Unpacking failed: %v", err)
			return err
		}

		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return fmt.Errorf("failed to write dump file: %w", err)
		}

		printer.Success("Fetched archive %s to %s (%d bytes)", a.ID, args[1], len(data))
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archive from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, printer, err := archiveSetup(cmd)
		if err != nil {
			return err
		}

		confirmer := buildConfirmer(cfg)
		ok, err := confirmer.Confirm(fmt.Sprintf("Delete archive %s?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			printer.Warning("Delete cancelled")
			return nil
		}

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			printer.Error("Delete failed: %v", err)
			return err
		}

		printer.Success("Deleted archive %s", args[0])
		return nil
	},
}

var archiveCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the archive store is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, printer, err := archiveSetup(cmd)
		if err != nil {
			return err
		}

		if err := store.HealthCheck(cmd.Context()); err != nil {
			printer.Error("Archive store check failed: %v", err)
			return err
		}

		printer.Success("Archive store is healthy")
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveFetchCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
	archiveCmd.AddCommand(archiveCheckCmd)
	rootCmd.AddCommand(archiveCmd)
}

func archiveSetup(cmd *cobra.Command) (*config.Config, archive.Store, *display.Printer, error) {
	cfg, err := loadOfflineConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	if !cfg.Archive.Enabled {
		return nil, nil, nil, fmt.Errorf("archiving is not enabled in the configuration")
	}

	store, err := archive.NewStore(cmd.Context(), &cfg.Archive.Storage)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, store, buildPrinter(cfg), nil
}
