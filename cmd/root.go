package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"deepfilter-media/infrastructure/config"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFileFailed = 1
	ExitUsage      = 2
)

// version is overridden at build time with -ldflags "-X deepfilter-media/cmd.version=..."
var version = "dev"

var cfgFile string

// ErrFilesFailed is returned when at least one input could not be processed
var ErrFilesFailed = errors.New("one or more files failed")

// UsageError is a command line or configuration problem detected before
// any file is processed
type UsageError struct {
	Message    string
	Suggestion string
}

func (e *UsageError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

var rootCmd = &cobra.Command{
	Use:   "dfm <input files...>",
	Short: "Remove background noise from audio and video files",
	Long: `dfm removes background noise from speech recordings with the
DeepFilterNet model.

  - Audio files are enhanced and saved in the same container
  - Video files keep their video stream untouched; only the audio is replaced
  - Any input sample rate is accepted; the model always runs at 48 kHz

Outputs go to output/<name>_enhanced<ext> unless -o is given.

Example:
  dfm interview.wav
  dfm lecture.mp4 -o lecture_clean.mp4
  dfm *.mp3 --quiet`,
	Args:          cobra.ArbitraryArgs,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEnhance,
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	return reportExit(err, rootCmd.ErrOrStderr())
}

// ExitCode maps a command error onto the process exit code
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFilesFailed):
		return ExitFileFailed
	case errors.As(err, &usage):
		return ExitUsage
	default:
		// cobra argument and unknown-command errors
		return ExitUsage
	}
}

func reportExit(err error, stderr io.Writer) int {
	code := ExitCode(err)
	// Per-file failures have already been reported
	if err != nil && code != ExitFileFailed {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Message: err.Error(), Suggestion: cmd.CommandPath() + " --help"}
	})
}

// loadConfig reads the config file. An explicit --config must exist; the
// default location is optional.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile == "" {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, &UsageError{Message: err.Error(), Suggestion: "dfm setup"}
	}
	return cfg, nil
}

// configPath returns the file config commands read and write
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}
