package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

const configTemplate = `# pma configuration
# Environment variables with the PMA_ prefix override these values.

# Path to the SQLite database (sessions, memory, response cache).
#db_path: ~/.config/pma/pma.db

# Default project id for grouping sessions and memory.
#project_id: ""

anthropic:
  # API key; falls back to ANTHROPIC_API_KEY.
  #api_key: ""
  #model: claude-sonnet-4-5-20250929
  #fast_model: claude-haiku-4-5-20251001
  #timeout_seconds: 300

# HTTP API port for 'pma serve'.
#port: 8080
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage pma configuration.

Running bare 'pma config' is the same as 'pma config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pma"), nil
}

func configInitRun() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	ui.Success("Created %s", path)
	return nil
}

func configShowRun() error {
	settings := map[string]any{
		"db_path":    viper.GetString("db_path"),
		"project_id": viper.GetString("project_id"),
		"anthropic": map[string]any{
			"api_key_set":     apiKey() != "",
			"model":           viper.GetString("anthropic.model"),
			"fast_model":      viper.GetString("anthropic.fast_model"),
			"timeout_seconds": viper.GetInt("anthropic.timeout_seconds"),
		},
		"port": viper.GetInt("port"),
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	if file := viper.ConfigFileUsed(); file != "" {
		ui.Info("Config file: %s", file)
	} else {
		ui.Info("No config file loaded (using defaults and PMA_* env vars)")
	}
	fmt.Fprint(ui.Out, string(data))
	return nil
}
