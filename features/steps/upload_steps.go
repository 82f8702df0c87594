//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deepfilter-media/application/publish"
	"deepfilter-media/cmd"
	"deepfilter-media/infrastructure/drive"

	googledrive "google.golang.org/api/drive/v3"

	"github.com/cucumber/godog"
)

// uploadMockDriveService is a mock implementation of the Drive API for upload testing
type uploadMockDriveService struct {
	files          []*googledrive.File
	uploadedFiles  []*googledrive.File
	permissions    map[string]*googledrive.Permission
	permissionFail bool
	storageLimit   int64
	storageUsage   int64
	deletedFileIDs []string
	nextFileID     int
}

func newUploadMockDriveService() *uploadMockDriveService {
	return &uploadMockDriveService{
		permissions: make(map[string]*googledrive.Permission),
		nextFileID:  1,
	}
}

func (m *uploadMockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*googledrive.File, error) {
	// Filter by name for FindFileByName
	start := strings.Index(query, "name = '")
	if start < 0 {
		return m.files, nil
	}
	start += len("name = '")
	end := strings.Index(query[start:], "'") + start
	target := query[start:end]

	var result []*googledrive.File
	for _, f := range m.files {
		if f.Name == target {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *uploadMockDriveService) GetAbout(ctx context.Context, fields string) (*googledrive.About, error) {
	return &googledrive.About{
		StorageQuota: &googledrive.AboutStorageQuota{
			Limit: m.storageLimit,
			Usage: m.storageUsage,
		},
	}, nil
}

func (m *uploadMockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	m.deletedFileIDs = append(m.deletedFileIDs, fileID)
	return nil
}

func (m *uploadMockDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*googledrive.File, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}

	fileID := fmt.Sprintf("uploaded-file-%d", m.nextFileID)
	m.nextFileID++

	file := &googledrive.File{
		Id:       fileID,
		Name:     fileName,
		MimeType: mimeType,
		Size:     info.Size(),
	}
	m.uploadedFiles = append(m.uploadedFiles, file)
	return file, nil
}

func (m *uploadMockDriveService) CreatePermission(ctx context.Context, fileID string, permission *googledrive.Permission) error {
	if m.permissionFail {
		return fmt.Errorf("permission API error: unable to set sharing permission")
	}
	m.permissions[fileID] = permission
	return nil
}

// uploadContext holds test state for upload scenarios
type uploadContext struct {
	tempDir     string
	folderID    string
	mockService *uploadMockDriveService
	paths       []string
	output      *bytes.Buffer
	err         error
}

// SharedUploadContext is reset before each scenario via Before hook
var SharedUploadContext *uploadContext

func getUploadContext() *uploadContext {
	return SharedUploadContext
}

func InitializeUploadScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "upload-test-*")
		if err != nil {
			return c, err
		}
		SharedUploadContext = &uploadContext{
			tempDir:     tempDir,
			mockService: newUploadMockDriveService(),
			output:      &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedUploadContext != nil && SharedUploadContext.tempDir != "" {
			os.RemoveAll(SharedUploadContext.tempDir)
		}
		SharedUploadContext = nil
		return c, nil
	})

	ctx.Step(`^the upload folder ID is "([^"]*)"$`, theUploadFolderIDIs)
	ctx.Step(`^the Drive quota is (\d+) bytes with (\d+) used$`, theDriveQuotaIs)
	ctx.Step(`^I have an enhanced file "([^"]*)" of (\d+) bytes$`, iHaveAnEnhancedFile)
	ctx.Step(`^I have an enhanced file "([^"]*)" that does not exist$`, iHaveAnEnhancedFileThatDoesNotExist)
	ctx.Step(`^the Drive folder already contains:$`, uploadTheDriveFolderAlreadyContains)
	ctx.Step(`^the permission API will fail$`, thePermissionAPIWillFail)
	ctx.Step(`^I upload the files$`, iUploadTheFiles)
	ctx.Step(`^the upload exit code should be (\d+)$`, theUploadExitCodeShouldBe)
	ctx.Step(`^(\d+) files? should be shared publicly$`, filesShouldBeSharedPublicly)
	ctx.Step(`^the file "([^"]*)" should be deleted before upload$`, uploadTheFileShouldBeDeletedBeforeUpload)
	ctx.Step(`^no files should be deleted before upload$`, uploadNoFilesShouldBeDeletedBeforeUpload)
	ctx.Step(`^the upload output should contain "([^"]*)"$`, uploadTheOutputShouldContain)
	ctx.Step(`^the upload output should not contain "([^"]*)"$`, uploadTheOutputShouldNotContain)
}

func theUploadFolderIDIs(folderID string) error {
	getUploadContext().folderID = folderID
	return nil
}

func theDriveQuotaIs(limit, used int64) error {
	u := getUploadContext()
	u.mockService.storageLimit = limit
	u.mockService.storageUsage = used
	return nil
}

func iHaveAnEnhancedFile(name string, size int) error {
	u := getUploadContext()
	p := filepath.Join(u.tempDir, name)
	if err := os.WriteFile(p, make([]byte, size), 0644); err != nil {
		return fmt.Errorf("failed to create test file: %v", err)
	}
	u.paths = append(u.paths, p)
	return nil
}

func iHaveAnEnhancedFileThatDoesNotExist(name string) error {
	u := getUploadContext()
	u.paths = append(u.paths, filepath.Join(u.tempDir, name))
	return nil
}

func uploadTheDriveFolderAlreadyContains(table *godog.Table) error {
	u := getUploadContext()
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		size, _ := strconv.ParseInt(row.Cells[2].Value, 10, 64)
		u.mockService.files = append(u.mockService.files, &googledrive.File{
			Id:   row.Cells[1].Value,
			Name: row.Cells[0].Value,
			Size: size,
		})
	}
	return nil
}

func thePermissionAPIWillFail() error {
	getUploadContext().mockService.permissionFail = true
	return nil
}

func iUploadTheFiles() error {
	u := getUploadContext()

	client, err := drive.NewClient(context.Background(), "", drive.WithDriveService(u.mockService))
	if err != nil {
		return fmt.Errorf("failed to initialize client: %v", err)
	}
	publisher := publish.NewService(client, u.folderID, u.output)
	u.err = cmd.RunUploadWithDependencies(context.Background(), publisher, u.paths, u.output)
	return nil
}

func theUploadExitCodeShouldBe(code int) error {
	u := getUploadContext()
	if got := cmd.ExitCode(u.err); got != code {
		return fmt.Errorf("expected exit code %d, got %d (err: %v)\noutput:\n%s", code, got, u.err, u.output.String())
	}
	return nil
}

func filesShouldBeSharedPublicly(count int) error {
	u := getUploadContext()
	if len(u.mockService.permissions) != count {
		return fmt.Errorf("expected %d shared files, got %d", count, len(u.mockService.permissions))
	}
	for id, p := range u.mockService.permissions {
		if p.Type != "anyone" || p.Role != "reader" {
			return fmt.Errorf("file %s shared as %s/%s, want anyone/reader", id, p.Type, p.Role)
		}
	}
	return nil
}

func uploadTheFileShouldBeDeletedBeforeUpload(fileID string) error {
	u := getUploadContext()
	for _, id := range u.mockService.deletedFileIDs {
		if id == fileID {
			return nil
		}
	}
	return fmt.Errorf("expected file %q to be deleted, deleted: %v", fileID, u.mockService.deletedFileIDs)
}

func uploadNoFilesShouldBeDeletedBeforeUpload() error {
	u := getUploadContext()
	if len(u.mockService.deletedFileIDs) > 0 {
		return fmt.Errorf("expected no deletions, got %v", u.mockService.deletedFileIDs)
	}
	return nil
}

func uploadTheOutputShouldContain(expected string) error {
	u := getUploadContext()
	if !strings.Contains(u.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, u.output.String())
	}
	return nil
}

func uploadTheOutputShouldNotContain(unexpected string) error {
	u := getUploadContext()
	if strings.Contains(u.output.String(), unexpected) {
		return fmt.Errorf("expected output not to contain %q, got:\n%s", unexpected, u.output.String())
	}
	return nil
}
