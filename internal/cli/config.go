package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"go.aimuz.me/nexus/config"
)

var configInitFlags struct {
	apiKey string
	force  bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitFlags.force {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		c := config.Default()
		c.APIKey = configInitFlags.apiKey
		if err := c.SaveFile(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("wrote ")+path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		shown := *cfg
		if shown.APIKey != "" {
			shown.APIKey = mask(shown.APIKey)
		}
		if shown.Chat.APIKey != "" {
			shown.Chat.APIKey = mask(shown.Chat.APIKey)
		}
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitFlags.apiKey, "api-key", "", "Gemini API key to store")
	configInitCmd.Flags().BoolVar(&configInitFlags.force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
}

func targetConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}
