package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"deepfilter-media/application/enhance"
	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <video>",
	Short: "Extract the audio track of a video without enhancing it",
	Long: `Extract the first audio stream of a video file as 48 kHz stereo audio.

The output format follows the extension of -o (default: WAV in the output
directory). Useful for listening to the original track before enhancing.

Example:
  dfm extract lecture.mp4
  dfm extract lecture.mp4 -o lecture.flac`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output audio path")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := enhance.NewComponents(cfg, cmd.OutOrStdout())
	target := extractOutput
	if target == "" {
		stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		target = filepath.Join(cfg.Paths.OutputDirectory, stem+".wav")
	}

	return RunExtractWithDependencies(
		cmd.Context(),
		c.Extractor,
		c.Codec,
		filesystem.NewChecker(),
		args[0],
		target,
		cmd.OutOrStdout(),
	)
}

// RunExtractWithDependencies runs the extract command with injected dependencies (for testing)
func RunExtractWithDependencies(
	ctx context.Context,
	extractor media.AudioExtractor,
	writer media.AudioWriter,
	fileChecker media.FileChecker,
	sourcePath string,
	outputPath string,
	output OutputWriter,
) error {
	if media.Classify(sourcePath) != media.KindVideo {
		return &UsageError{Message: fmt.Sprintf("%s is not a supported video file", sourcePath), Suggestion: "dfm formats"}
	}
	if !fileChecker.Exists(sourcePath) {
		return fmt.Errorf("source file not found: %s", sourcePath)
	}

	// Verify ffmpeg is available if extractor supports it
	if verifiable, ok := extractor.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	fmt.Fprintf(output, "Extracting audio from %s...\n", sourcePath)

	buf, err := extractor.Extract(ctx, sourcePath)
	if err != nil {
		return err
	}
	if err := filesystem.EnsureParentDir(outputPath); err != nil {
		return err
	}
	if err := writer.Write(ctx, outputPath, buf); err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully created: %s (%s, %d Hz)\n", outputPath, buf.Duration().Round(time.Second), buf.SampleRate)
	return nil
}
