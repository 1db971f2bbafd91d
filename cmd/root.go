package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pg-selective-restore/internal/config"
	"pg-selective-restore/internal/display"
	"pg-selective-restore/internal/logging"
	"pg-selective-restore/internal/pgexec"
)

var cfgFile string

// roundTo trims durations for terminal output
const roundTo = time.Millisecond

// CLI flag variables
var (
	// Connection flags
	dbHost     string
	dbPort     int
	dbUser     string
	dbPassword string
	dbName     string

	// Filter flags
	filterSchemas       []string
	filterSchemasNoData []string
	excludeTables       []string
	excludeTableRegexes []string

	// Operation flags
	verbose        bool
	quiet          bool
	autoApprove    bool
	promptPassword bool
	logFile        string
	logFormat      string

	// Display flags
	themeName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pg-selective-restore",
	Short: "Selectively restore PostgreSQL custom-format dumps",
	Long: `pg-selective-restore restores PostgreSQL custom-format dumps through a
filtered table of contents. It lists the archive catalog with pg_restore -l,
drops entries for excluded schemas and tables (including triggers whose
procedures live in excluded schemas), and feeds the rewritten catalog back
to pg_restore with -L.

Examples:
  # Restore only the jdb and xmldb schemas
  pg-selective-restore restore app.dump --db=app --schema=jdb --schema=xmldb

  # Restore gis schema definitions without its data
  pg-selective-restore restore app.dump --db=app --schema=jdb --schema-nodata=gis

  # Inspect the rewritten catalog without restoring anything
  pg-selective-restore catalog app.dump --schema=jdb

  # Dump a database and archive the artifact
  pg-selective-restore dump --db=app --output=app.dump

  # Use a configuration file
  pg-selective-restore restore app.dump --config=restore.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pg-selective-restore.yaml)")

	// Connection flags
	rootCmd.PersistentFlags().StringVar(&dbHost, "host", "localhost", "database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "port", 5432, "database port")
	rootCmd.PersistentFlags().StringVar(&dbUser, "user", "", "database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "password", "", "database password (prefer PG_SELECTIVE_RESTORE_DATABASE_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", "", "target database name")
	rootCmd.PersistentFlags().BoolVarP(&promptPassword, "prompt-password", "W", false, "prompt for the database password")

	// Filter flags
	rootCmd.PersistentFlags().StringSliceVar(&filterSchemas, "schema", nil, "schema to restore (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&filterSchemasNoData, "schema-nodata", nil, "schema to restore without table data (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&excludeTables, "exclude-table", nil, "schema.table to skip (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&excludeTableRegexes, "exclude-table-regex", nil, "regex matched against schema.table (repeatable)")

	// Operation flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&autoApprove, "auto-approve", false, "skip confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Display flags
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "dark", "color theme (dark, light, plain)")

	// Bind flags to viper
	viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("database.username", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("database.password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("database.database", rootCmd.PersistentFlags().Lookup("db"))

	viper.BindPFlag("filter.schemas", rootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("filter.schemas_nodata", rootCmd.PersistentFlags().Lookup("schema-nodata"))
	viper.BindPFlag("filter.exclude_tables", rootCmd.PersistentFlags().Lookup("exclude-table"))
	viper.BindPFlag("filter.exclude_table_regexes", rootCmd.PersistentFlags().Lookup("exclude-table-regex"))

	viper.BindPFlag("display.quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("display.auto_approve", rootCmd.PersistentFlags().Lookup("auto-approve"))
	viper.BindPFlag("display.theme", rootCmd.PersistentFlags().Lookup("theme"))

	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	rootCmd.SetUsageTemplate(getUsageTemplate())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pg-selective-restore" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pg-selective-restore")
	}

	viper.SetEnvPrefix("PG_SELECTIVE_RESTORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig assembles the effective configuration from the config file,
// environment and bound flags, then validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := assembleConfig()
	if err != nil {
		return nil, err
	}

	if promptPassword {
		password, err := display.ReadPassword(fmt.Sprintf("Password for %s: ", cfg.Database.Username))
		if err != nil {
			return nil, err
		}
		cfg.Database.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// loadOfflineConfig is loadConfig for commands that never open a database
// connection, so the connection settings are not required.
func loadOfflineConfig() (*config.Config, error) {
	cfg, err := assembleConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateOffline(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

func assembleConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Log.Level = string(logging.LogLevelVerbose)
	}
	if quiet {
		cfg.Log.Level = string(logging.LogLevelQuiet)
		cfg.Display.Quiet = true
	}

	return cfg, nil
}

// buildLogger creates the application logger from the effective configuration
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Output:  os.Stderr,
		Format:  cfg.Log.Format,
		LogFile: cfg.Log.File,
	})
}

// buildPrinter creates the terminal printer honoring the configured theme
func buildPrinter(cfg *config.Config) *display.Printer {
	colors := display.NewColorSystem(display.GetThemeByName(cfg.Display.Theme))
	printer := display.NewPrinter(colors, os.Stdout)
	printer.SetQuiet(cfg.Display.Quiet)
	return printer
}

// buildConfirmer creates the confirmation prompt reader
func buildConfirmer(cfg *config.Config) *display.Confirmer {
	confirmer := display.NewConfirmer(os.Stdin, os.Stderr)
	confirmer.SetAutoApprove(cfg.Display.AutoApprove)
	return confirmer
}

// buildToolset wires the pg_restore toolset. The password travels through
// PGPASSWORD, the channel the PostgreSQL client tools expect.
func buildToolset(cfg *config.Config, logger *logging.Logger) (*pgexec.Toolset, error) {
	if cfg.Database.Password != "" {
		if err := os.Setenv("PGPASSWORD", cfg.Database.Password); err != nil {
			return nil, err
		}
	}
	return pgexec.NewToolset(cfg.Restore.RestoreCmd, pgexec.NewExecRunner(logger), logger)
}

// connArgs extracts the pg tool connection arguments from the configuration
func connArgs(cfg *config.Config) pgexec.ConnArgs {
	return pgexec.ConnArgs{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.Username,
		Database: cfg.Database.Database,
	}
}

// getUsageTemplate returns a custom usage template with grouped flag help
func getUsageTemplate() string {
	return `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("pg-selective-restore version %s\n", version)
			cmd.Printf("Built: %s\n", buildTime)
			cmd.Printf("Commit: %s\n", gitCommit)
			cmd.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating a
// sample configuration file
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a starting-point configuration file for the --config flag.

Examples:
  pg-selective-restore config > .pg-selective-restore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := config.Sample()
			if err != nil {
				return err
			}
			cmd.Print(string(sample))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
