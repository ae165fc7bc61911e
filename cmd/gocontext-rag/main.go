package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/gocontext-rag/internal/app"
	"github.com/dshills/gocontext-rag/internal/config"
	"github.com/dshills/gocontext-rag/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Persistent flags
var (
	configPath    string
	envFile       string
	workspaceFlag string
	dbFlag        string
	logLevelFlag  string
	prettyFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "gocontext-rag",
	Short: "Retrieve ranked code context for AI assistants",
	Long: `gocontext-rag fuses full-text search, embedding similarity and recently
edited files into one ranked list of code chunks. It runs as an MCP server
over stdio or answers one-off queries from the command line.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("gocontext-rag version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file (ignored if missing)")
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "Workspace root (default: config or current directory)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (default: config or ~/.gocontext/rag.db)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&prettyFlag, "pretty", false, "Human readable colored logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies .env, the config file, the environment and finally the
// command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workspace") {
		cfg.Workspace = workspaceFlag
	}
	if flags.Changed("db") {
		cfg.DBPath = dbFlag
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevelFlag
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = prettyFlag
	}
	return cfg, cfg.Validate()
}

// openApp loads configuration and opens the application. Logs go to stderr
// since stdout carries results or the MCP protocol.
func openApp(cmd *cobra.Command) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	slog.SetDefault(logger)

	a, err := app.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
