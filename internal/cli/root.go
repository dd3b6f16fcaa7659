// Package cli implements the nexus command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/config"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	build      BuildInfo
	configPath string
	logLevel   string
	envFile    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Grounded chat, image generation and live voice on the Gemini API",
	Long: `Nexus talks to the Gemini API from the terminal.

  nexus live     real-time voice conversation with spoken transcript
  nexus chat     grounded chat with cited web sources
  nexus image    image generation

The API key is read from GEMINI_API_KEY (or GOOGLE_API_KEY, API_KEY),
a .env file, or the config file created by 'nexus config init'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	rootCmd.AddCommand(liveCmd, chatCmd, imageCmd, configCmd, doctorCmd, versionCmd)
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	build = info
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv(envFile)

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Debug("config loaded", "path", cfg.FilePath(), "command", cmd.Name())
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load()
	}
	c, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return c, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nexus %s (commit %s, built %s)\n", build.Version, build.Commit, build.Date)
	},
}
