package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LamPham123/CalPal.ai/internal/config"
	"github.com/LamPham123/CalPal.ai/internal/logging"
)

// Flags shared by every subcommand.
var (
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command for the calpal application
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calpal",
		Short: "Finds meeting times when every participant is free",
		Long: `calpal reads the busy time of Google Calendar and CalDAV participants and
suggests meeting slots that fit everyone, honoring work hours and weekends.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (serve)
  - A one-shot search from the command line (find-time)`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: ./calpal.yaml or $XDG_CONFIG_HOME/calpal/calpal.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides log.format)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFindTimeCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateDocsCmd())
	return cmd
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calpal version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file and the environment, then applies
// the logging flags.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

// newLogger builds the process logger on w and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.NewLogger(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
