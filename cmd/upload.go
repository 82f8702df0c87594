package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deepfilter-media/domain/media"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload enhanced files to Google Drive with public sharing",
	Long: `Upload files to the configured Google Drive folder and share them with
"anyone with the link".

A file with the same name already in the folder is replaced.
Without arguments the most recent file in the output directory is uploaded.

Example:
  dfm upload
  dfm upload output/interview_enhanced.wav output/lecture_enhanced.mp4`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		latest, err := findLatestFile(cfg.Paths.OutputDirectory)
		if err != nil {
			return &UsageError{Message: fmt.Sprintf("no file specified and could not find latest: %v", err)}
		}
		paths = []string{latest}
	}

	ctx := cmd.Context()
	publisher, err := newPublisher(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return RunUploadWithDependencies(ctx, publisher, paths, cmd.OutOrStdout())
}

// findLatestFile finds the most recently modified supported media file in dir
func findLatestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var latestPath string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() || media.Classify(entry.Name()) == media.KindUnsupported {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestPath = filepath.Join(dir, entry.Name())
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("no media files found in %s", dir)
	}
	return latestPath, nil
}

// RunUploadWithDependencies uploads each path with an injected publisher (for testing).
// Every path is attempted; ErrFilesFailed is returned if any upload failed.
func RunUploadWithDependencies(
	ctx context.Context,
	publisher media.Publisher,
	paths []string,
	output OutputWriter,
) error {
	failed := 0
	for _, p := range paths {
		fmt.Fprintf(output, "Uploading: %s...\n", filepath.Base(p))
		url, err := publisher.Publish(ctx, p)
		if err != nil {
			failed++
			fmt.Fprintf(output, "  Upload failed: %v\n\n", err)
			continue
		}
		fmt.Fprintf(output, "  Shareable URL: %s\n\n", url)
	}

	fmt.Fprintf(output, "%d uploaded, %d failed\n", len(paths)-failed, failed)
	if failed > 0 {
		return ErrFilesFailed
	}
	return nil
}
