package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
)

// mockRunner records invocations and simulates ffmpeg by writing a WAV to
// the last argument
type mockRunner struct {
	calls      [][]string
	writeAudio *media.AudioBuffer // written to the output path on success
	runErr     error
	outputErr  error
	inspect    func(args []string) // called before returning
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.inspect != nil {
		m.inspect(args)
	}
	if m.runErr != nil {
		return m.runErr
	}
	if m.writeAudio != nil {
		return audiofile.WriteWAV(args[len(args)-1], *m.writeAudio)
	}
	return nil
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.outputErr != nil {
		return nil, m.outputErr
	}
	return []byte("ffmpeg version 7.0"), nil
}

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func exitFailure(stderr string) error {
	return &CommandError{Name: "ffmpeg", Stderr: stderr, Err: errors.New("exit status 1")}
}

func stereo48k(frames int) *media.AudioBuffer {
	buf := media.AudioBuffer{Samples: make([]float32, frames*2), SampleRate: 48000, Channels: 2}
	for i := range buf.Samples {
		buf.Samples[i] = 0.1
	}
	return &buf
}

func TestExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{writeAudio: stereo48k(4800)}
	extractor := NewExtractor(WithCommandRunner(runner), WithFFmpegPath("/opt/ffmpeg"), WithWorkDir(t.TempDir()))

	buf, err := extractor.Extract(ctx, "/videos/service.mkv")
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if buf.SampleRate != media.NativeSampleRate || buf.Channels != 2 || buf.Frames() != 4800 {
		t.Errorf("Extract() = %d Hz / %d ch / %d frames", buf.SampleRate, buf.Channels, buf.Frames())
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 ffmpeg call, got %d", len(runner.calls))
	}
	args := runner.calls[0]
	if args[0] != "/opt/ffmpeg" {
		t.Errorf("binary = %q, want /opt/ffmpeg", args[0])
	}
	for _, seq := range [][]string{
		{"-nostdin"},
		{"-i", "/videos/service.mkv"},
		{"-map", "0:a:0"},
		{"-vn"},
		{"-acodec", "pcm_s16le"},
		{"-ar", "48000"},
		{"-ac", "2"},
	} {
		if !containsSeq(args, seq...) {
			t.Errorf("ffmpeg args %v missing %v", args, seq)
		}
	}
}

func TestExtractor_ExtractErrors(t *testing.T) {
	tests := []struct {
		name       string
		runner     *mockRunner
		wantKind   media.ErrorKind
		wantDetail string
	}{
		{
			name:     "ffmpeg not on PATH",
			runner:   &mockRunner{runErr: &CommandError{Name: "ffmpeg", Err: &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}}},
			wantKind: media.ErrMissingExternalTool,
		},
		{
			name:       "no audio track",
			runner:     &mockRunner{runErr: exitFailure("Stream map '0:a:0' matches no streams.\nTo ignore this, add a trailing '?' to the map.")},
			wantKind:   media.ErrExtractionFailure,
			wantDetail: "no audio stream",
		},
		{
			name:       "unreadable container",
			runner:     &mockRunner{runErr: exitFailure("broken.mp4: Invalid data found when processing input")},
			wantKind:   media.ErrExtractionFailure,
			wantDetail: "cannot read input container",
		},
		{
			name:     "empty audio track",
			runner:   &mockRunner{writeAudio: stereo48k(0)},
			wantKind: media.ErrExtractionFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewExtractor(WithCommandRunner(tt.runner), WithWorkDir(t.TempDir()))
			_, err := extractor.Extract(context.Background(), "clip.mp4")

			if got := media.KindOf(err); got != tt.wantKind {
				t.Fatalf("Extract() error kind = %v, want %v (err: %v)", got, tt.wantKind, err)
			}
			if tt.wantDetail != "" && !strings.Contains(err.Error(), tt.wantDetail) {
				t.Errorf("Extract() error = %q, want it to contain %q", err.Error(), tt.wantDetail)
			}
		})
	}
}

func TestMuxer_Remux(t *testing.T) {
	ctx := context.Background()
	var sawAudio media.AudioBuffer
	runner := &mockRunner{
		inspect: func(args []string) {
			// The second input is the enhanced audio written for ffmpeg
			for i := 0; i < len(args)-1; i++ {
				if args[i] == "-i" && strings.HasSuffix(args[i+1], ".wav") {
					buf, err := audiofile.ReadWAV(args[i+1])
					if err == nil {
						sawAudio = buf
					}
				}
			}
		},
	}
	muxer := NewMuxer([]Option{WithCommandRunner(runner), WithWorkDir(t.TempDir())}, WithAudioBitrate("256k"))

	if err := muxer.Remux(ctx, "in.mkv", *stereo48k(960), "out/in_enhanced.mkv"); err != nil {
		t.Fatalf("Remux() unexpected error: %v", err)
	}

	args := runner.calls[0]
	for _, seq := range [][]string{
		{"-i", "in.mkv"},
		{"-map", "0:v:0"},
		{"-map", "1:a:0"},
		{"-c:v", "copy"},
		{"-c:a", "aac"},
		{"-b:a", "256k"},
		{"-shortest"},
	} {
		if !containsSeq(args, seq...) {
			t.Errorf("ffmpeg args %v missing %v", args, seq)
		}
	}
	if args[len(args)-1] != "out/in_enhanced.mkv" {
		t.Errorf("output = %q, want out/in_enhanced.mkv", args[len(args)-1])
	}
	if sawAudio.Frames() != 960 || sawAudio.SampleRate != 48000 {
		t.Errorf("audio handed to ffmpeg = %d frames at %d Hz", sawAudio.Frames(), sawAudio.SampleRate)
	}
}

func TestMuxer_AudioCodecFor(t *testing.T) {
	muxer := NewMuxer(nil, WithAudioCodec("libmp3lame"))

	tests := []struct {
		output string
		want   string
	}{
		{"a.mp4", "libmp3lame"},
		{"a.WEBM", "libopus"},
		{"a.wmv", "wmav2"},
		{"a.mkv", "libmp3lame"},
	}
	for _, tt := range tests {
		if got := muxer.AudioCodecFor(tt.output); got != tt.want {
			t.Errorf("AudioCodecFor(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestMuxer_RemuxErrors(t *testing.T) {
	t.Run("stream copy not possible", func(t *testing.T) {
		dir := t.TempDir()
		output := filepath.Join(dir, "out.flv")
		runner := &mockRunner{
			inspect: func(args []string) {
				// ffmpeg may have created the file before failing
				os.WriteFile(args[len(args)-1], []byte("partial"), 0644)
			},
			runErr: exitFailure("[flv @ 0x1] Could not find tag for codec hevc in stream #0, codec not currently supported in container\nCould not write header for output file #0"),
		}
		muxer := NewMuxer([]Option{WithCommandRunner(runner), WithWorkDir(dir)})

		err := muxer.Remux(context.Background(), "in.mkv", *stereo48k(10), output)
		if media.KindOf(err) != media.ErrMuxingFailure {
			t.Fatalf("Remux() error kind = %v, want MuxingFailure (err: %v)", media.KindOf(err), err)
		}
		if !strings.Contains(err.Error(), "stream-copied") {
			t.Errorf("Remux() error = %q, want stream copy detail", err.Error())
		}
		if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
			t.Error("partial output was not removed")
		}
	})

	t.Run("ffmpeg missing", func(t *testing.T) {
		runner := &mockRunner{runErr: &CommandError{Name: "ffmpeg", Err: exec.ErrNotFound}}
		muxer := NewMuxer([]Option{WithCommandRunner(runner), WithWorkDir(t.TempDir())})

		err := muxer.Remux(context.Background(), "in.mp4", *stereo48k(10), filepath.Join(t.TempDir(), "o.mp4"))
		if media.KindOf(err) != media.ErrMissingExternalTool {
			t.Errorf("Remux() error kind = %v, want MissingExternalTool", media.KindOf(err))
		}
	})
}

func TestTranscoder(t *testing.T) {
	ctx := context.Background()

	t.Run("decode keeps native format", func(t *testing.T) {
		mono := media.AudioBuffer{Samples: make([]float32, 441), SampleRate: 44100, Channels: 1}
		runner := &mockRunner{writeAudio: &mono}
		tr := NewTranscoder(WithCommandRunner(runner), WithWorkDir(t.TempDir()))

		buf, err := tr.Decode(ctx, "voice.ogg")
		if err != nil {
			t.Fatalf("Decode() unexpected error: %v", err)
		}
		if buf.SampleRate != 44100 || buf.Channels != 1 {
			t.Errorf("Decode() = %d Hz / %d ch, want 44100 / 1", buf.SampleRate, buf.Channels)
		}
		if containsSeq(runner.calls[0], "-ar") {
			t.Errorf("Decode() must not force a sample rate: %v", runner.calls[0])
		}
	})

	t.Run("encode", func(t *testing.T) {
		runner := &mockRunner{}
		tr := NewTranscoder(WithCommandRunner(runner), WithWorkDir(t.TempDir()))

		if err := tr.Encode(ctx, *stereo48k(48), "out/voice_enhanced.m4a"); err != nil {
			t.Fatalf("Encode() unexpected error: %v", err)
		}
		args := runner.calls[0]
		if args[len(args)-1] != "out/voice_enhanced.m4a" {
			t.Errorf("Encode() output = %q", args[len(args)-1])
		}
	})

	t.Run("encode failure", func(t *testing.T) {
		runner := &mockRunner{runErr: exitFailure("Unknown encoder 'wmav2'")}
		tr := NewTranscoder(WithCommandRunner(runner), WithWorkDir(t.TempDir()))

		err := tr.Encode(ctx, *stereo48k(48), filepath.Join(t.TempDir(), "x.wma"))
		if media.KindOf(err) != media.ErrMuxingFailure {
			t.Errorf("Encode() error kind = %v, want MuxingFailure", media.KindOf(err))
		}
		if !strings.Contains(err.Error(), "Unknown encoder") {
			t.Errorf("Encode() error = %q, want stderr tail", err.Error())
		}
	})
}

func TestVerifyInstalled(t *testing.T) {
	ok := NewExtractor(WithCommandRunner(&mockRunner{}))
	if err := ok.VerifyInstalled(context.Background()); err != nil {
		t.Errorf("VerifyInstalled() unexpected error: %v", err)
	}

	missing := NewExtractor(WithCommandRunner(&mockRunner{outputErr: exec.ErrNotFound}))
	err := missing.VerifyInstalled(context.Background())
	if media.KindOf(err) != media.ErrMissingExternalTool {
		t.Errorf("VerifyInstalled() error kind = %v, want MissingExternalTool", media.KindOf(err))
	}
}

func TestStderrMatchers(t *testing.T) {
	tests := []struct {
		name    string
		stderr  string
		match   func(string) bool
		matches bool
	}{
		{"no audio map", "Stream map '0:a:0' matches no streams.", MatchNoAudioStream, true},
		{"no streams at all", "Output file #0 does not contain any stream", MatchNoAudioStream, true},
		{"audio present", "Stream #0:1: Audio: aac", MatchNoAudioStream, false},
		{"copy tag", "Could not find tag for codec pcm_s16le in stream #1, codec not currently supported in container", MatchStreamCopyIssue, true},
		{"webm restriction", "Only VP8 or VP9 or AV1 video and Vorbis or Opus audio and WebVTT subtitles are supported for WebM.", MatchStreamCopyIssue, true},
		{"normal progress", "frame= 100 fps=25 q=-1.0 size=1024kB", MatchStreamCopyIssue, false},
		{"missing input", "in.mp4: No such file or directory", MatchInputUnreadable, true},
		{"truncated mp4", "moov atom not found", MatchInputUnreadable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.match(tt.stderr); got != tt.matches {
				t.Errorf("match(%q) = %v, want %v", tt.stderr, got, tt.matches)
			}
		})
	}
}

func TestExecCommandRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	ctx := context.Background()
	runner := &ExecCommandRunner{}

	err := runner.Run(ctx, "dfm-definitely-not-installed")
	if !IsMissingTool(err) {
		t.Errorf("IsMissingTool() = false for a binary not on PATH (err: %v)", err)
	}

	err = runner.Run(ctx, "/nonexistent/dir/ffmpeg", "-version")
	if !IsMissingTool(err) {
		t.Errorf("IsMissingTool() = false for a missing absolute path (err: %v)", err)
	}

	err = runner.Run(ctx, "sh", "-c", "echo 'No such file or directory' >&2; exit 3")
	if err == nil {
		t.Fatal("Run() expected error for a non-zero exit")
	}
	if IsMissingTool(err) {
		t.Error("IsMissingTool() = true for a command that ran and failed")
	}
	if !strings.Contains(stderrOf(err), "No such file") {
		t.Errorf("stderr not captured: %q", stderrOf(err))
	}
}
