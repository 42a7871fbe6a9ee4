package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/config"
	"github.com/abhisek/learntrack/internal/store"
)

// cfg is resolved once per invocation in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "learntrack",
	Short:         "Lesson progress tracking for online courses",
	Long:          "Learntrack records lesson progress per enrollment and keeps topic and module completion rollups current.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Database DSN or SQLite file path (overrides LEARNTRACK_DB env var)")
	pf.String("driver", "", "Database driver: sqlite or postgres (overrides LEARNTRACK_DB_DRIVER env var)")
	pf.String("catalog", "", "Path to the catalog JSON file (overrides LEARNTRACK_CATALOG env var)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides LEARNTRACK_LOG_LEVEL env var)")
	pf.String("env-file", ".env", "Path to a .env file; missing files are ignored")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env, the environment and flags, in increasing priority,
// then installs the default logger.
func loadConfig(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	c, err := config.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		c.DB.Driver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		c.DB.DSN = v
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		c.CatalogPath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		c.LogLevel = v
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lvl, _ := c.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	cfg = c
	return nil
}

// resolveDSN returns the database DSN. For SQLite an explicit path gets its
// directory created; an empty one falls back to the default XDG path.
func resolveDSN() (string, error) {
	if cfg.DB.Driver != store.DriverSQLite {
		return cfg.DB.DSN, nil
	}
	if p := cfg.DB.DSN; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
