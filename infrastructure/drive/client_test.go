package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deepfilter-media/domain/distribution"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
)

// mockDriveService is a mock implementation for testing
type mockDriveService struct {
	files          []*drive.File
	shouldFail     bool
	failError      error
	failPermission bool
	noWebViewLink  bool
	storageLimit   int64
	storageUsage   int64
	lastQuery      string
	deletedFileIDs []string
	uploads        []string
	permissions    []*drive.Permission
}

func (m *mockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error) {
	m.lastQuery = query
	if m.shouldFail {
		return nil, m.failError
	}
	return m.files, nil
}

func (m *mockDriveService) GetAbout(ctx context.Context, fields string) (*drive.About, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return &drive.About{
		StorageQuota: &drive.AboutStorageQuota{
			Limit: m.storageLimit,
			Usage: m.storageUsage,
		},
	}, nil
}

func (m *mockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	if m.shouldFail {
		return m.failError
	}
	m.deletedFileIDs = append(m.deletedFileIDs, fileID)
	return nil
}

func (m *mockDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*drive.File, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	m.uploads = append(m.uploads, folderID+"/"+fileName+" "+mimeType)
	f := &drive.File{
		Id:       "uploaded-file-id",
		Name:     fileName,
		MimeType: mimeType,
		Size:     1024,
	}
	if !m.noWebViewLink {
		f.WebViewLink = "https://drive.google.com/file/d/uploaded-file-id/view"
	}
	return f, nil
}

func (m *mockDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	if m.failPermission {
		return fmt.Errorf("permission denied")
	}
	m.permissions = append(m.permissions, permission)
	return nil
}

func TestClient_FindFileByName(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mock      *mockDriveService
		folderID  string
		fileName  string
		wantID    string
		wantQuery string
		wantErr   bool
	}{
		{
			name: "finds existing file",
			mock: &mockDriveService{files: []*drive.File{
				{Id: "file-1", Name: "talk_enhanced.mp4", Size: 2048, CreatedTime: created.Format(time.RFC3339)},
			}},
			folderID:  "folder-1",
			fileName:  "talk_enhanced.mp4",
			wantID:    "file-1",
			wantQuery: "'folder-1' in parents and name = 'talk_enhanced.mp4' and trashed = false",
		},
		{
			name:      "not found returns nil",
			mock:      &mockDriveService{},
			folderID:  "folder-1",
			fileName:  "missing.wav",
			wantQuery: "'folder-1' in parents and name = 'missing.wav' and trashed = false",
		},
		{
			name:      "escapes quotes and omits empty folder",
			mock:      &mockDriveService{},
			fileName:  "Bob's talk.wav",
			wantQuery: `name = 'Bob\'s talk.wav' and trashed = false`,
		},
		{
			name:     "handles API error",
			mock:     &mockDriveService{shouldFail: true, failError: fmt.Errorf("API error")},
			fileName: "x.wav",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(context.Background(), "", WithDriveService(tt.mock))
			info, err := client.FindFileByName(context.Background(), tt.folderID, tt.fileName)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.mock.lastQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", tt.mock.lastQuery, tt.wantQuery)
			}

			if tt.wantID == "" {
				if info != nil {
					t.Errorf("expected nil, got %+v", info)
				}
				return
			}
			if info == nil || info.ID != tt.wantID {
				t.Fatalf("FindFileByName() = %+v, want ID %q", info, tt.wantID)
			}
			if !info.CreatedTime.Equal(created) {
				t.Errorf("CreatedTime = %v, want %v", info.CreatedTime, created)
			}
		})
	}
}

func TestClient_DeletePermanently(t *testing.T) {
	tests := []struct {
		name    string
		mock    *mockDriveService
		fileID  string
		wantErr bool
	}{
		{
			name:   "deletes file successfully",
			mock:   &mockDriveService{},
			fileID: "file-123",
		},
		{
			name: "handles API error",
			mock: &mockDriveService{
				shouldFail: true,
				failError:  fmt.Errorf("API error"),
			},
			fileID:  "file-123",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(context.Background(), "", WithDriveService(tt.mock))
			err := client.DeletePermanently(context.Background(), tt.fileID)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(tt.mock.deletedFileIDs) != 1 || tt.mock.deletedFileIDs[0] != tt.fileID {
				t.Errorf("expected file %q to be deleted, got %v", tt.fileID, tt.mock.deletedFileIDs)
			}
		})
	}
}

func TestClient_UploadAndShare(t *testing.T) {
	req := distribution.UploadRequest{
		LocalPath: "output/talk_enhanced.mp4",
		FileName:  "talk_enhanced.mp4",
		FolderID:  "folder-1",
		MimeType:  "video/mp4",
	}

	tests := []struct {
		name    string
		mock    *mockDriveService
		wantURL string
		wantErr string
	}{
		{
			name:    "uploads and shares",
			mock:    &mockDriveService{},
			wantURL: "https://drive.google.com/file/d/uploaded-file-id/view",
		},
		{
			name:    "builds url when drive omits it",
			mock:    &mockDriveService{noWebViewLink: true},
			wantURL: "https://drive.google.com/file/d/uploaded-file-id/view?usp=sharing",
		},
		{
			name:    "upload failure",
			mock:    &mockDriveService{shouldFail: true, failError: fmt.Errorf("quota exceeded")},
			wantErr: "failed to upload file",
		},
		{
			name:    "share failure",
			mock:    &mockDriveService{failPermission: true},
			wantErr: "failed to share file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(context.Background(), "", WithDriveService(tt.mock))
			result, err := client.UploadAndShare(context.Background(), req)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.ShareableURL != tt.wantURL {
				t.Errorf("ShareableURL = %q, want %q", result.ShareableURL, tt.wantURL)
			}
			if result.FileID != "uploaded-file-id" || result.Size != 1024 {
				t.Errorf("result = %+v", result)
			}
			if len(tt.mock.uploads) != 1 || tt.mock.uploads[0] != "folder-1/talk_enhanced.mp4 video/mp4" {
				t.Errorf("uploads = %v", tt.mock.uploads)
			}
			if len(tt.mock.permissions) != 1 {
				t.Fatalf("expected 1 permission, got %d", len(tt.mock.permissions))
			}
			if p := tt.mock.permissions[0]; p.Type != "anyone" || p.Role != "reader" {
				t.Errorf("permission = %s/%s, want anyone/reader", p.Type, p.Role)
			}
		})
	}
}

func TestClient_GetStorageQuota(t *testing.T) {
	tests := []struct {
		name          string
		mock          *mockDriveService
		wantAvailable int64
		wantUnlimited bool
		wantErr       bool
	}{
		{
			name:          "limited account",
			mock:          &mockDriveService{storageLimit: 15 << 30, storageUsage: 5 << 30},
			wantAvailable: 10 << 30,
		},
		{
			name:          "unlimited account",
			mock:          &mockDriveService{storageUsage: 5 << 30},
			wantUnlimited: true,
		},
		{
			name:    "handles API error",
			mock:    &mockDriveService{shouldFail: true, failError: fmt.Errorf("API error")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(context.Background(), "", WithDriveService(tt.mock))
			info, err := client.GetStorageQuota(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.AvailableBytes != tt.wantAvailable || info.Unlimited() != tt.wantUnlimited {
				t.Errorf("quota = %+v", info)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input    string
		wantZero bool
	}{
		{"2026-03-01T09:30:00Z", false},
		{"2026-03-01T09:30:00.000-05:00", false},
		{"", true},
		{"yesterday", true},
	}
	for _, tt := range tests {
		if got := parseTime(tt.input); got.IsZero() != tt.wantZero {
			t.Errorf("parseTime(%q) = %v, wantZero %v", tt.input, got, tt.wantZero)
		}
	}
}

func TestCallbackHandler(t *testing.T) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)
	handler := callbackHandler(codeChan, errChan)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "successful") {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
	if got := <-codeChan; got != "abc" {
		t.Errorf("code = %q, want abc", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
	err := <-errChan
	if err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("error = %v, want access_denied", err)
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "token.json")
	want := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}

	if err := saveToken(path, want); err != nil {
		t.Fatalf("saveToken() unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("token file mode = %v, want owner-only", perm)
	}

	got, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken() unexpected error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("loadToken() = %+v, want %+v", got, want)
	}
}
