package cmd

import (
	"fmt"
	"os"
	"strconv"

	"deepfilter-media/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

Every prompt offers the built-in default; press enter to keep it.
Google Drive settings are only asked for when uploads are enabled.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, configPath(), cmd.OutOrStdout())
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	// Existing values become the prompt defaults
	existing, err := config.Load(configPath)
	if err != nil {
		existing = config.Default()
	}

	fmt.Fprintln(out, "Welcome to deepfilter-media setup!")
	fmt.Fprintln(out)

	cfg := *existing

	if err := promptPaths(prompter, &cfg); err != nil {
		return err
	}
	if err := promptAudio(prompter, &cfg); err != nil {
		return err
	}
	if err := promptModel(prompter, &cfg); err != nil {
		return err
	}
	if err := promptGoogle(prompter, &cfg); err != nil {
		return err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(&cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

// ask prompts for a string, keeping current when the answer is empty
func ask(prompter Prompter, message, current string) (string, error) {
	v, err := prompter.Input(message, current)
	if err != nil {
		return "", fmt.Errorf("prompt cancelled")
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	dir, err := ask(prompter, "Where should enhanced files go?", cfg.Paths.OutputDirectory)
	if err != nil {
		return err
	}
	cfg.Paths.OutputDirectory = dir
	return nil
}

func promptAudio(prompter Prompter, cfg *config.Config) error {
	rate, err := ask(prompter, "Sample rate for saved audio in Hz (0 keeps 48000)?", strconv.Itoa(cfg.Audio.OutputSampleRate))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(rate)
	if err != nil || n < 0 {
		return fmt.Errorf("sample rate must be a non-negative integer, got %q", rate)
	}
	cfg.Audio.OutputSampleRate = n

	bitrate, err := ask(prompter, "Audio bitrate for remuxed video?", cfg.Audio.VideoAudioBitrate)
	if err != nil {
		return err
	}
	cfg.Audio.VideoAudioBitrate = bitrate
	return nil
}

func promptModel(prompter Prompter, cfg *config.Config) error {
	path, err := ask(prompter, "Path to a local DeepFilterNet model archive (empty downloads it)?", cfg.Model.Path)
	if err != nil {
		return err
	}
	cfg.Model.Path = path

	pf, err := prompter.Confirm("Enable the post-filter for extra noise suppression?", cfg.Model.PostFilter)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Model.PostFilter = pf
	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Configure Google Drive uploads?", cfg.Google.FolderID != "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	credentials, err := ask(prompter, "Path to Google OAuth credentials file?", cfg.Google.CredentialsFile)
	if err != nil {
		return err
	}
	cfg.Google.CredentialsFile = credentials

	folder, err := ask(prompter, "Google Drive folder ID for uploads?", cfg.Google.FolderID)
	if err != nil {
		return err
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.FolderID = folder
	return nil
}
