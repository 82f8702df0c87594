package cmd

import (
	"context"
	"fmt"
	"io"

	"deepfilter-media/application/enhance"
	"deepfilter-media/application/publish"
	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/config"
	"deepfilter-media/infrastructure/console"
	"deepfilter-media/infrastructure/drive"

	"github.com/spf13/cobra"
)

var (
	enhanceOutput     string
	enhanceQuiet      bool
	enhanceOutputRate int
	enhanceUpload     bool
	enhanceColor      string
)

// Processor runs the enhancement pipeline on one or many inputs
type Processor interface {
	Process(ctx context.Context, inputPath, outputPath string) media.ProcessingResult
	ProcessBatch(ctx context.Context, inputs []string) []media.ProcessingResult
}

var _ Processor = (*enhance.Service)(nil)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&enhanceOutput, "output", "o", "", "output path (single input only)")
	f.BoolVarP(&enhanceQuiet, "quiet", "q", false, "only print the final summary and errors")
	f.IntVar(&enhanceOutputRate, "output-rate", -1, "sample rate of saved audio in Hz (0 keeps 48000)")
	f.BoolVar(&enhanceUpload, "upload", false, "upload each output to the configured Google Drive folder")
	f.StringVar(&enhanceColor, "color", "auto", "colorize output: auto, always or never")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return &UsageError{Message: "no input files given", Suggestion: "dfm --help"}
	}
	if enhanceOutput != "" && len(args) > 1 {
		return &UsageError{Message: "-o/--output can only be used with a single input file"}
	}
	mode, err := parseColorMode(enhanceColor)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if enhanceOutputRate >= 0 {
		cfg.Audio.OutputSampleRate = enhanceOutputRate
	}
	if err := cfg.Validate(); err != nil {
		return &UsageError{Message: err.Error()}
	}

	logger := console.NewLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	progress := logger.Writer()
	if enhanceQuiet {
		progress = io.Discard
	}

	var opts []enhance.Option
	if enhanceUpload {
		publisher, err := newPublisher(cmd.Context(), cfg, progress)
		if err != nil {
			return err
		}
		opts = append(opts, enhance.WithPublisher(publisher))
	}

	svc := enhance.NewDefault(cfg, progress, opts...)
	return RunEnhanceWithDependencies(cmd.Context(), svc, args, enhanceOutput, enhanceQuiet, logger)
}

func parseColorMode(s string) (console.ColorMode, error) {
	switch s {
	case "auto":
		return console.ColorAuto, nil
	case "always":
		return console.ColorAlways, nil
	case "never":
		return console.ColorNever, nil
	}
	return console.ColorAuto, &UsageError{Message: fmt.Sprintf("invalid --color value %q (want auto, always or never)", s)}
}

// newPublisher builds the Drive publisher, authorizing through the browser
// the first time
func newPublisher(ctx context.Context, cfg *config.Config, out io.Writer) (media.Publisher, error) {
	if cfg.Google.FolderID == "" {
		return nil, &UsageError{
			Message:    "google.folder_id is not configured",
			Suggestion: config.SuggestSetCommand("google.folder_id"),
		}
	}
	client, err := drive.NewClientWithOAuth(ctx, drive.OAuthConfig{
		CredentialsFile: cfg.Google.CredentialsFile,
		TokenFile:       cfg.Google.TokenFile,
		Output:          out,
	})
	if err != nil {
		return nil, &UsageError{Message: fmt.Sprintf("failed to connect to Google Drive: %v", err)}
	}
	return publish.NewService(client, cfg.Google.FolderID, out), nil
}

// RunEnhanceWithDependencies processes inputs with an injected processor (for testing).
// It returns ErrFilesFailed when any input failed.
func RunEnhanceWithDependencies(
	ctx context.Context,
	proc Processor,
	inputs []string,
	outputPath string,
	quiet bool,
	logger *console.Logger,
) error {
	var results []media.ProcessingResult
	if len(inputs) == 1 {
		results = []media.ProcessingResult{proc.Process(ctx, inputs[0], outputPath)}
	} else {
		results = proc.ProcessBatch(ctx, inputs)
	}

	for _, res := range results {
		if !res.Success() {
			logger.Error("%s: %v", res.Input.Path, res.Err)
			continue
		}
		if quiet {
			continue
		}
		if res.ShareURL != "" {
			logger.Success("%s -> %s (%s)", res.Input.Path, res.OutputPath, res.ShareURL)
		} else {
			logger.Success("%s -> %s", res.Input.Path, res.OutputPath)
		}
	}

	summary := media.Summarize(results)
	logger.Info("%d succeeded, %d failed", summary.Succeeded, summary.Failed)
	if !summary.AllSucceeded() {
		return ErrFilesFailed
	}
	return nil
}
