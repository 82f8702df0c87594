package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deepfilter-media/domain/distribution"
	"deepfilter-media/domain/media"
)

// Service uploads enhanced outputs to Google Drive
type Service struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
}

// NewService creates a new publish service
func NewService(client distribution.DriveClient, folderID string, output io.Writer) *Service {
	if output == nil {
		output = io.Discard
	}
	return &Service{
		driveClient: client,
		folderID:    folderID,
		output:      output,
	}
}

// Publish implements media.Publisher. A same-named file already in the
// folder is replaced.
func (s *Service) Publish(ctx context.Context, filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("cannot publish %s: %w", filePath, err)
	}

	quota, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check storage quota: %w", err)
	}

	fileName := filepath.Base(filePath)

	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to check for existing file: %w", err)
	}

	// Space held by the file being replaced is freed before upload
	needed := info.Size()
	if existing != nil {
		needed -= existing.Size
	}
	if !quota.HasSpaceFor(needed) {
		return "", fmt.Errorf("not enough Drive space for %s: need %.1f MB, %.1f MB available",
			fileName, float64(needed)/1024/1024, float64(quota.AvailableBytes)/1024/1024)
	}

	if existing != nil {
		fmt.Fprintf(s.output, "      Replacing existing %s (%.1f MB)\n", existing.Name, float64(existing.Size)/1024/1024)
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	req := distribution.UploadRequest{
		LocalPath: filePath,
		FileName:  fileName,
		FolderID:  s.folderID,
		MimeType:  distribution.MimeTypeFor(filePath),
	}

	result, err := s.driveClient.UploadAndShare(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to upload and share %s: %w", fileName, err)
	}

	fmt.Fprintf(s.output, "      Uploaded %s (%.1f MB)\n", result.FileName, float64(result.Size)/1024/1024)
	return result.ShareableURL, nil
}

// Ensure Service implements media.Publisher
var _ media.Publisher = (*Service)(nil)
