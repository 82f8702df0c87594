package deepfilter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
	"deepfilter-media/infrastructure/ffmpeg"
)

// fakeDeepFilter behaves like deep-filter: it reads the input WAV and writes
// an attenuated copy with the same name into --output-dir
type fakeDeepFilter struct {
	calls      [][]string
	gain       float32
	dropFrames int // frames removed from the end of the output
	shouldFail bool
	failError  error
}

func (f *fakeDeepFilter) Run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.shouldFail {
		return f.failError
	}

	var outputDir string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--output-dir" {
			outputDir = args[i+1]
		}
	}
	input := args[len(args)-1]
	buf, err := audiofile.ReadWAV(input)
	if err != nil {
		return err
	}
	for i := range buf.Samples {
		buf.Samples[i] *= f.gain
	}
	buf = buf.FitFrames(buf.Frames() - f.dropFrames)
	return audiofile.WriteWAV(filepath.Join(outputDir, filepath.Base(input)), buf)
}

func (f *fakeDeepFilter) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func foundOnPath(name string) (string, error) {
	return "/usr/local/bin/" + name, nil
}

func notOnPath(name string) (string, error) {
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func modelServer(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		fmt.Fprint(w, "model-archive-bytes")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func stereo(rate, frames int) media.AudioBuffer {
	buf := media.AudioBuffer{Samples: make([]float32, frames*2), SampleRate: rate, Channels: 2}
	for i := range buf.Samples {
		buf.Samples[i] = 0.5
	}
	return buf
}

func TestService_LoadDownloadsOnce(t *testing.T) {
	srv, hits := modelServer(t, http.StatusOK)
	cacheDir := t.TempDir()
	ctx := context.Background()

	svc := NewService(
		WithLookPath(foundOnPath),
		WithModelURL(srv.URL+"/models/DeepFilterNet3_onnx.tar.gz"),
		WithCacheDir(cacheDir),
	)

	if svc.Ready() {
		t.Fatal("Ready() = true before Load")
	}
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("second Load() unexpected error: %v", err)
	}
	if !svc.Ready() {
		t.Error("Ready() = false after Load")
	}

	want := filepath.Join(cacheDir, "DeepFilterNet3_onnx.tar.gz")
	if svc.ModelArchive() != want {
		t.Errorf("ModelArchive() = %q, want %q", svc.ModelArchive(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "model-archive-bytes" {
		t.Errorf("cached archive = %q, %v", data, err)
	}

	// A second service finds the cached archive
	other := NewService(WithLookPath(foundOnPath), WithModelURL(srv.URL+"/models/DeepFilterNet3_onnx.tar.gz"), WithCacheDir(cacheDir))
	if err := other.Load(ctx); err != nil {
		t.Fatalf("Load() from cache unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("model downloaded %d times, want 1", got)
	}
}

func TestService_LoadErrorIsRemembered(t *testing.T) {
	srv, hits := modelServer(t, http.StatusNotFound)
	cacheDir := t.TempDir()
	svc := NewService(WithLookPath(foundOnPath), WithModelURL(srv.URL+"/m.tar.gz"), WithCacheDir(cacheDir))

	first := svc.Load(context.Background())
	if media.KindOf(first) != media.ErrModelLoadFailure {
		t.Fatalf("Load() error kind = %v, want ModelLoadFailure (err: %v)", media.KindOf(first), first)
	}
	second := svc.Load(context.Background())
	if second != first {
		t.Errorf("second Load() = %v, want the remembered error", second)
	}
	_, err := svc.Enhance(context.Background(), stereo(48000, 10))
	if err != first {
		t.Errorf("Enhance() after failed load = %v, want the remembered error", err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("download attempted %d times, want 1", got)
	}

	entries, _ := os.ReadDir(cacheDir)
	if len(entries) != 0 {
		t.Errorf("failed download left %d files in the cache", len(entries))
	}
}

func TestService_LoadFailures(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantDetail string
	}{
		{
			name:       "binary not installed",
			opts:       []Option{WithLookPath(notOnPath)},
			wantDetail: "deep-filter not found",
		},
		{
			name:       "configured archive missing",
			opts:       []Option{WithLookPath(foundOnPath), WithModelPath("/nonexistent/model.tar.gz")},
			wantDetail: "model archive not readable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(append(tt.opts, WithCacheDir(t.TempDir()))...)
			err := svc.Load(context.Background())
			if media.KindOf(err) != media.ErrModelLoadFailure {
				t.Fatalf("Load() error kind = %v, want ModelLoadFailure", media.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantDetail) {
				t.Errorf("Load() error = %q, want it to contain %q", err.Error(), tt.wantDetail)
			}
			if svc.Ready() {
				t.Error("Ready() = true after failed Load")
			}
		})
	}
}

func localModel(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "model.tar.gz")
	if err := os.WriteFile(p, []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestService_Enhance(t *testing.T) {
	model := localModel(t)
	runner := &fakeDeepFilter{gain: 0.5, dropFrames: 3}
	svc := NewService(
		WithLookPath(foundOnPath),
		WithModelPath(model),
		WithCommandRunner(runner),
		WithWorkDir(t.TempDir()),
		WithPostFilter(true),
		WithAttenuationLimit(12),
	)

	in := stereo(48000, 4800)
	out, err := svc.Enhance(context.Background(), in)
	if err != nil {
		t.Fatalf("Enhance() unexpected error: %v", err)
	}
	if !svc.Ready() {
		t.Error("Enhance() did not load the model")
	}

	if out.SampleRate != 48000 || out.Channels != 2 {
		t.Errorf("Enhance() = %d Hz / %d ch, want 48000 / 2", out.SampleRate, out.Channels)
	}
	if out.Frames() != in.Frames() {
		t.Errorf("Enhance() frames = %d, want %d", out.Frames(), in.Frames())
	}
	if s := out.Samples[0]; s < 0.24 || s > 0.26 {
		t.Errorf("Enhance() first sample = %v, want about 0.25", s)
	}

	args := strings.Join(runner.calls[0], " ")
	for _, want := range []string{
		"/usr/local/bin/deep-filter",
		"--model " + model,
		"--output-dir ",
		"--pf",
		"--atten-lim-db 12",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("deep-filter args %q missing %q", args, want)
		}
	}
}

func TestService_EnhanceErrors(t *testing.T) {
	model := localModel(t)

	t.Run("wrong sample rate", func(t *testing.T) {
		runner := &fakeDeepFilter{gain: 1}
		svc := NewService(WithLookPath(foundOnPath), WithModelPath(model), WithCommandRunner(runner))

		_, err := svc.Enhance(context.Background(), stereo(44100, 441))
		if media.KindOf(err) != media.ErrInferenceFailure {
			t.Errorf("Enhance() error kind = %v, want InferenceFailure", media.KindOf(err))
		}
		if len(runner.calls) != 0 {
			t.Error("deep-filter ran on a buffer at the wrong rate")
		}
	})

	t.Run("subprocess failure", func(t *testing.T) {
		runner := &fakeDeepFilter{
			shouldFail: true,
			failError:  &ffmpeg.CommandError{Name: "deep-filter", Stderr: "loading\nError: Unsupported sample rate", Err: errors.New("exit status 1")},
		}
		svc := NewService(WithLookPath(foundOnPath), WithModelPath(model), WithCommandRunner(runner), WithWorkDir(t.TempDir()))

		_, err := svc.Enhance(context.Background(), stereo(48000, 480))
		if media.KindOf(err) != media.ErrInferenceFailure {
			t.Fatalf("Enhance() error kind = %v, want InferenceFailure", media.KindOf(err))
		}
		if !strings.Contains(err.Error(), "Unsupported sample rate") {
			t.Errorf("Enhance() error = %q, want stderr detail", err.Error())
		}
	})

	t.Run("empty buffer skips the model", func(t *testing.T) {
		runner := &fakeDeepFilter{gain: 1}
		svc := NewService(WithLookPath(foundOnPath), WithModelPath(model), WithCommandRunner(runner))

		out, err := svc.Enhance(context.Background(), media.AudioBuffer{SampleRate: 48000, Channels: 1})
		if err != nil {
			t.Fatalf("Enhance() unexpected error: %v", err)
		}
		if !out.Empty() || len(runner.calls) != 0 {
			t.Errorf("Enhance() of empty buffer = %d frames, %d calls", out.Frames(), len(runner.calls))
		}
	})
}

func TestDownloader_Fetch(t *testing.T) {
	srv, _ := modelServer(t, http.StatusOK)
	dest := filepath.Join(t.TempDir(), "nested", "model.tar.gz")

	if err := NewDownloader(srv.Client()).Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "model-archive-bytes" {
		t.Errorf("Fetch() wrote %q", data)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewDownloader(nil).Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("Fetch() with cancelled context expected error")
	}
}
