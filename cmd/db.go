package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"pg-selective-restore/internal/config"
	"pg-selective-restore/internal/database"
	"pg-selective-restore/internal/display"
)

var (
	createOwner string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance helpers",
	Long: `Maintenance commands around the restore workflow: create or drop the
target database, check its size, vacuum it, or pin its search_path.`,
}

var dbCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the target database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenanceSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			if err := service.CreateDatabase(db, cfg.Database.Database, createOwner); err != nil {
				return err
			}
			printer.Success("Created database %q", cfg.Database.Database)
			return nil
		})
	},
}

var dbDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the target database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Dropping is irreversible; the confirmation asks for the exact
		// database name unless --auto-approve is set.
		confirmer := buildConfirmer(cfg)
		ok, err := confirmer.ConfirmDestructive(
			fmt.Sprintf("This permanently deletes database %q and all its data.", cfg.Database.Database),
			cfg.Database.Database)
		if err != nil {
			return err
		}
		if !ok {
			buildPrinter(cfg).Warning("Drop cancelled")
			return nil
		}

		return withMaintenanceSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			if err := service.DropDatabase(db, cfg.Database.Database); err != nil {
				return err
			}
			printer.Success("Dropped database %q", cfg.Database.Database)
			return nil
		})
	},
}

var dbSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Show the size of the target database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenanceSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			_, pretty, err := service.DatabaseSize(db, cfg.Database.Database)
			if err != nil {
				return err
			}
			printer.DatabaseSize(cfg.Database.Database, pretty)
			return nil
		})
	},
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Run VACUUM ANALYZE on the target database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTargetSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			duration, err := service.VacuumAnalyze(db)
			if err != nil {
				return err
			}
			printer.Success("VACUUM ANALYZE on %q took %s", cfg.Database.Database, duration.Round(roundTo))
			return nil
		})
	},
}

var dbShowCmd = &cobra.Command{
	Use:   "show <setting>",
	Short: "Show a server setting of the target database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTargetSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			value, err := service.ShowSetting(db, args[0])
			if err != nil {
				return err
			}
			printer.Info("%s = %s", args[0], value)
			return nil
		})
	},
}

var dbSearchPathCmd = &cobra.Command{
	Use:   "search-path <schema>...",
	Short: "Set the target database's default search_path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTargetSession(func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error {
			if err := service.SetSearchPath(db, cfg.Database.Database, args); err != nil {
				return err
			}
			printer.Success("search_path on %q set", cfg.Database.Database)
			return nil
		})
	},
}

func init() {
	dbCreateCmd.Flags().StringVar(&createOwner, "owner", "", "owner role for the new database")

	dbCmd.AddCommand(dbCreateCmd)
	dbCmd.AddCommand(dbDropCmd)
	dbCmd.AddCommand(dbSizeCmd)
	dbCmd.AddCommand(dbVacuumCmd)
	dbCmd.AddCommand(dbShowCmd)
	dbCmd.AddCommand(dbSearchPathCmd)
	rootCmd.AddCommand(dbCmd)
}

type sessionFunc func(cfg *config.Config, service *database.Service, db *sql.DB, printer *display.Printer) error

// withMaintenanceSession runs fn against the maintenance database, for
// operations that cannot target the database they act on.
func withMaintenanceSession(fn sessionFunc) error {
	return withSession(fn, func(service *database.Service, cfg *config.Config) (*sql.DB, error) {
		return service.ConnectMaintenance(cfg.Database)
	})
}

// withTargetSession runs fn inside the target database itself
func withTargetSession(fn sessionFunc) error {
	return withSession(fn, func(service *database.Service, cfg *config.Config) (*sql.DB, error) {
		return service.Connect(cfg.Database)
	})
}

func withSession(fn sessionFunc, connect func(*database.Service, *config.Config) (*sql.DB, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	printer := buildPrinter(cfg)

	service := database.NewServiceWithLogger(logger)

	db, err := connect(service, cfg)
	if err != nil {
		printer.Error("Connection failed: %v", err)
		return err
	}
	defer service.Close(db)

	if err := fn(cfg, service, db, printer); err != nil {
		printer.Error("%v", err)
		return err
	}
	return nil
}
