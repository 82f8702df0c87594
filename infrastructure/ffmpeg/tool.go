package ffmpeg

import (
	"context"
	"fmt"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/filesystem"
)

// tool holds what every ffmpeg adapter needs
type tool struct {
	ffmpegPath string
	runner     CommandRunner
	workDir    string // parent for scratch directories, os.TempDir when empty
}

// Option is a functional option shared by the ffmpeg adapters
type Option func(*tool)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) Option {
	return func(t *tool) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) Option {
	return func(t *tool) {
		t.runner = runner
	}
}

// WithWorkDir sets the parent directory for intermediate files
func WithWorkDir(dir string) Option {
	return func(t *tool) {
		t.workDir = dir
	}
}

func newTool(opts []Option) tool {
	t := tool{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// VerifyInstalled checks that ffmpeg is available
func (t *tool) VerifyInstalled(ctx context.Context) error {
	if _, err := t.runner.Output(ctx, t.ffmpegPath, "-version"); err != nil {
		return missingTool(t.ffmpegPath, "", err)
	}
	return nil
}

func (t *tool) run(ctx context.Context, args ...string) error {
	return t.runner.Run(ctx, t.ffmpegPath, append([]string{"-nostdin", "-hide_banner"}, args...)...)
}

func (t *tool) newWorkDir(path string) (*filesystem.WorkDir, error) {
	w, err := filesystem.NewWorkDir(t.workDir)
	if err != nil {
		return nil, &media.Error{Kind: media.ErrFilesystem, Path: path, Detail: "cannot create scratch directory", Err: err}
	}
	return w, nil
}

func scratchWriteError(path string, err error) *media.Error {
	return &media.Error{Kind: media.ErrFilesystem, Path: path, Detail: fmt.Sprintf("cannot write intermediate audio: %v", err), Err: err}
}
