package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"deepfilter-media/infrastructure/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration values",
	Long: `Read and change values in the configuration file.

Keys use dotted section names, for example audio.output_sample_rate.

Examples:
  dfm config list
  dfm config get model.cache_directory
  dfm config set audio.output_sample_rate 16000
  dfm config unset audio.output_sample_rate`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// configManager loads the config file (or built-in defaults) for editing
func configManager() (*config.ConfigManager, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	path := configPath()
	return config.NewConfigManager(cfg, path), path, nil
}

// usageForKey turns manager lookup errors into usage errors
func usageForKey(err error) error {
	if errors.Is(err, config.ErrUnknownKey) {
		return &UsageError{
			Message:    err.Error(),
			Suggestion: "dfm config list",
		}
	}
	if errors.Is(err, config.ErrInvalidValue) {
		return &UsageError{Message: err.Error()}
	}
	return err
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configuration value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := configManager()
		if err != nil {
			return err
		}
		return RunConfigListWithDependencies(mgr, cmd.OutOrStdout())
	},
}

// RunConfigListWithDependencies prints all keys and values
func RunConfigListWithDependencies(mgr *config.ConfigManager, out OutputWriter) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	fmt.Fprintln(w, "---\t-----")
	for _, e := range mgr.List() {
		value := e.Value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Key, value)
	}
	return w.Flush()
}

// --- GET command ---

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := configManager()
		if err != nil {
			return err
		}
		return RunConfigGetWithDependencies(mgr, args[0], cmd.OutOrStdout())
	},
}

// RunConfigGetWithDependencies prints the value of key
func RunConfigGetWithDependencies(mgr *config.ConfigManager, key string, out OutputWriter) error {
	value, err := mgr.Get(key)
	if err != nil {
		return usageForKey(err)
	}
	fmt.Fprintln(out, value)
	return nil
}

// --- SET command ---

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, path, err := configManager()
		if err != nil {
			return err
		}
		return RunConfigSetWithDependencies(mgr, path, args[0], args[1], cmd.OutOrStdout())
	},
}

// RunConfigSetWithDependencies sets key to value and saves the file
func RunConfigSetWithDependencies(mgr *config.ConfigManager, configPath, key, value string, out OutputWriter) error {
	if err := mgr.Set(key, value); err != nil {
		return usageForKey(err)
	}
	stored, _ := mgr.Get(key)
	fmt.Fprintf(out, "Set %s = %s (%s)\n", key, stored, configPath)
	return nil
}

// --- UNSET command ---

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, path, err := configManager()
		if err != nil {
			return err
		}
		return RunConfigUnsetWithDependencies(mgr, path, args[0], cmd.OutOrStdout())
	},
}

// RunConfigUnsetWithDependencies resets key to its default and saves the file
func RunConfigUnsetWithDependencies(mgr *config.ConfigManager, configPath, key string, out OutputWriter) error {
	if err := mgr.Unset(key); err != nil {
		return usageForKey(err)
	}
	stored, _ := mgr.Get(key)
	if strings.TrimSpace(stored) == "" {
		stored = "(empty)"
	}
	fmt.Fprintf(out, "Reset %s to %s (%s)\n", key, stored, configPath)
	return nil
}
