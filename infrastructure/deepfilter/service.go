package deepfilter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
	"deepfilter-media/infrastructure/ffmpeg"
	"deepfilter-media/infrastructure/filesystem"
)

const (
	// DefaultBinary is the DeepFilterNet command line tool
	DefaultBinary = "deep-filter"
	// DefaultModelURL points at the pretrained DeepFilterNet3 ONNX archive
	DefaultModelURL = "https://github.com/Rikorose/DeepFilterNet/raw/main/models/DeepFilterNet3_onnx.tar.gz"
)

// Service implements media.Enhancer by running the deep-filter binary
// against a pretrained model archive. It is safe for concurrent use; calls
// are serialised.
type Service struct {
	mu sync.Mutex

	binary     string
	modelPath  string
	modelURL   string
	cacheDir   string
	postFilter bool
	attenLimDB float64
	workDir    string

	runner     ffmpeg.CommandRunner
	lookPath   func(string) (string, error)
	downloader *Downloader
	output     io.Writer

	// set by the first Load
	loaded     bool
	loadErr    error
	binaryPath string
	archive    string
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithBinary sets the deep-filter executable name or path
func WithBinary(binary string) Option {
	return func(s *Service) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// WithModelPath uses a local model archive instead of downloading one
func WithModelPath(p string) Option {
	return func(s *Service) {
		s.modelPath = p
	}
}

// WithModelURL sets where the model archive is fetched from
func WithModelURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.modelURL = url
		}
	}
}

// WithCacheDir sets the directory downloaded archives are kept in
func WithCacheDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.cacheDir = dir
		}
	}
}

// WithPostFilter enables the DeepFilterNet post filter
func WithPostFilter(enabled bool) Option {
	return func(s *Service) {
		s.postFilter = enabled
	}
}

// WithAttenuationLimit caps noise attenuation in dB; zero means unlimited
func WithAttenuationLimit(db float64) Option {
	return func(s *Service) {
		s.attenLimDB = db
	}
}

// WithWorkDir sets the parent directory for intermediate files
func WithWorkDir(dir string) Option {
	return func(s *Service) {
		s.workDir = dir
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner ffmpeg.CommandRunner) Option {
	return func(s *Service) {
		s.runner = runner
	}
}

// WithLookPath replaces exec.LookPath (for testing)
func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *Service) {
		s.lookPath = fn
	}
}

// WithDownloader sets a custom model downloader
func WithDownloader(d *Downloader) Option {
	return func(s *Service) {
		s.downloader = d
	}
}

// WithOutput sets where download progress is reported
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// NewService creates a new deep-filter backed enhancer. Nothing is loaded
// until Load or the first Enhance.
func NewService(opts ...Option) *Service {
	s := &Service{
		binary:     DefaultBinary,
		modelURL:   DefaultModelURL,
		cacheDir:   DefaultCacheDir(),
		runner:     &ffmpeg.ExecCommandRunner{},
		lookPath:   exec.LookPath,
		downloader: NewDownloader(nil),
		output:     io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultCacheDir returns <user cache dir>/deepfilter-media/models
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "deepfilter-media", "models")
}

// NativeRate implements media.Enhancer
func (s *Service) NativeRate() int {
	return media.NativeSampleRate
}

// Ready implements media.Enhancer
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// ModelArchive returns the archive in use, empty before a successful Load
func (s *Service) ModelArchive() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archive
}

// Load implements media.Enhancer. Only the first call does any work; a
// failure is remembered and returned to every later call.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Service) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if s.loadErr != nil {
		return s.loadErr
	}

	binaryPath, err := s.lookPath(s.binary)
	if err != nil {
		s.loadErr = &media.Error{
			Kind:   media.ErrModelLoadFailure,
			Detail: fmt.Sprintf("%s not found; install DeepFilterNet and make sure %s is on PATH", s.binary, s.binary),
			Err:    err,
		}
		return s.loadErr
	}

	archive, err := s.resolveArchive(ctx)
	if err != nil {
		s.loadErr = err
		return err
	}

	s.binaryPath = binaryPath
	s.archive = archive
	s.loaded = true
	return nil
}

func (s *Service) resolveArchive(ctx context.Context) (string, error) {
	if s.modelPath != "" {
		if _, err := os.Stat(s.modelPath); err != nil {
			return "", &media.Error{Kind: media.ErrModelLoadFailure, Path: s.modelPath, Detail: "model archive not readable", Err: err}
		}
		return s.modelPath, nil
	}

	cached := filepath.Join(s.cacheDir, path.Base(s.modelURL))
	if info, err := os.Stat(cached); err == nil && info.Size() > 0 {
		return cached, nil
	}

	fmt.Fprintf(s.output, "Downloading model weights from %s\n", s.modelURL)
	if err := s.downloader.Fetch(ctx, s.modelURL, cached); err != nil {
		return "", &media.Error{Kind: media.ErrModelLoadFailure, Path: cached, Detail: "cannot download model weights", Err: err}
	}
	return cached, nil
}

// Args returns the deep-filter arguments for one input file
func (s *Service) Args(archive, outputDir, input string) []string {
	args := []string{
		"--model", archive,
		"--output-dir", outputDir,
		"--compensate-delay",
	}
	if s.postFilter {
		args = append(args, "--pf")
	}
	if s.attenLimDB > 0 {
		args = append(args, "--atten-lim-db", strconv.FormatFloat(s.attenLimDB, 'f', -1, 64))
	}
	return append(args, input)
}

// Enhance implements media.Enhancer
func (s *Service) Enhance(ctx context.Context, buf media.AudioBuffer) (media.AudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return media.AudioBuffer{}, err
	}
	if buf.SampleRate != media.NativeSampleRate {
		return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, nil, "model expects %d Hz audio, got %d Hz", media.NativeSampleRate, buf.SampleRate)
	}
	if err := buf.Validate(); err != nil {
		return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, err, "invalid audio buffer")
	}
	if buf.Empty() {
		return buf, nil
	}

	work, err := filesystem.NewWorkDir(s.workDir)
	if err != nil {
		return media.AudioBuffer{}, media.NewError(media.ErrFilesystem, err, "cannot create scratch directory")
	}
	defer work.Close()

	input := work.File(".wav")
	if err := audiofile.WriteWAV(input, buf); err != nil {
		return media.AudioBuffer{}, media.NewError(media.ErrFilesystem, err, "cannot write model input")
	}
	outputDir := filepath.Join(work.Path(), "enhanced")
	if err := os.Mkdir(outputDir, 0755); err != nil {
		return media.AudioBuffer{}, media.NewError(media.ErrFilesystem, err, "cannot create model output directory")
	}

	if err := s.runner.Run(ctx, s.binaryPath, s.Args(s.archive, outputDir, input)...); err != nil {
		if line := lastStderrLine(err); line != "" {
			return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, err, "%s failed: %s", s.binary, line)
		}
		return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, err, "%s failed", s.binary)
	}

	enhanced, err := audiofile.ReadWAV(filepath.Join(outputDir, filepath.Base(input)))
	if err != nil {
		return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, err, "model produced no readable output")
	}
	if enhanced.Channels != buf.Channels {
		return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, nil, "model returned %d channels for %d-channel input", enhanced.Channels, buf.Channels)
	}
	if enhanced.SampleRate != buf.SampleRate {
		if enhanced, err = media.Resample(enhanced, buf.SampleRate); err != nil {
			return media.AudioBuffer{}, media.NewError(media.ErrInferenceFailure, err, "cannot restore model output rate")
		}
	}
	return enhanced.FitFrames(buf.Frames()), nil
}

func lastStderrLine(err error) string {
	var ce *ffmpeg.CommandError
	if !errors.As(err, &ce) {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(ce.Stderr), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Ensure Service implements media.Enhancer
var _ media.Enhancer = (*Service)(nil)
