//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"deepfilter-media/application/enhance"
	"deepfilter-media/cmd"
	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
	"deepfilter-media/infrastructure/console"
	"deepfilter-media/infrastructure/filesystem"

	"github.com/cucumber/godog"
)

// gainEnhancer stands in for the model: it scales samples and records rates
type gainEnhancer struct {
	loaded  bool
	loadErr error
	rates   []int
}

func (g *gainEnhancer) Load(ctx context.Context) error {
	if g.loadErr != nil {
		return g.loadErr
	}
	g.loaded = true
	return nil
}

func (g *gainEnhancer) Ready() bool { return g.loaded }

func (g *gainEnhancer) NativeRate() int { return media.NativeSampleRate }

func (g *gainEnhancer) Enhance(ctx context.Context, buf media.AudioBuffer) (media.AudioBuffer, error) {
	g.rates = append(g.rates, buf.SampleRate)
	out := media.AudioBuffer{Samples: make([]float32, len(buf.Samples)), SampleRate: buf.SampleRate, Channels: buf.Channels}
	for i, v := range buf.Samples {
		out.Samples[i] = v * 0.5
	}
	return out, nil
}

// fakeVideoTool extracts a fixed tone and remuxes by writing a marker file
type fakeVideoTool struct {
	missing bool
	remuxed []string
}

func (f *fakeVideoTool) Extract(ctx context.Context, videoPath string) (media.AudioBuffer, error) {
	if f.missing {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrMissingExternalTool, Path: videoPath, Detail: "ffmpeg not found"}
	}
	return tone(media.ExtractSampleRate, media.ExtractChannels, 0.2), nil
}

func (f *fakeVideoTool) Remux(ctx context.Context, videoPath string, audio media.AudioBuffer, outputPath string) error {
	f.remuxed = append(f.remuxed, outputPath)
	return os.WriteFile(outputPath, []byte("remuxed"), 0644)
}

type enhanceContext struct {
	tempDir   string
	outputDir string
	enhancer  *gainEnhancer
	video     *fakeVideoTool
	inputs    []string
	outRate   int
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	err       error
}

var SharedEnhanceContext = &enhanceContext{}

func InitializeEnhanceScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedEnhanceContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "enhance-test-*")
		if err != nil {
			return c, err
		}
		*testCtx = enhanceContext{
			tempDir:   tempDir,
			outputDir: filepath.Join(tempDir, "output"),
			enhancer:  &gainEnhancer{},
			video:     &fakeVideoTool{},
			stdout:    &bytes.Buffer{},
			stderr:    &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		*testCtx = enhanceContext{}
		return c, nil
	})

	ctx.Step(`^a (\d+) Hz (mono|stereo) WAV file "([^"]*)"$`, testCtx.aWAVFile)
	ctx.Step(`^a video file "([^"]*)"$`, testCtx.aVideoFile)
	ctx.Step(`^an input named "([^"]*)" that does not exist$`, testCtx.anInputThatDoesNotExist)
	ctx.Step(`^a file "([^"]*)" with unsupported content$`, testCtx.aFileWithUnsupportedContent)
	ctx.Step(`^ffmpeg is not installed$`, testCtx.ffmpegIsNotInstalled)
	ctx.Step(`^the model cannot be loaded$`, testCtx.theModelCannotBeLoaded)
	ctx.Step(`^the output sample rate is (\d+)$`, testCtx.theOutputSampleRateIs)
	ctx.Step(`^I enhance the files$`, testCtx.iEnhanceTheFiles)
	ctx.Step(`^I enhance the files quietly$`, testCtx.iEnhanceTheFilesQuietly)
	ctx.Step(`^the exit code should be (\d+)$`, testCtx.theExitCodeShouldBe)
	ctx.Step(`^the summary should report (\d+) succeeded and (\d+) failed$`, testCtx.theSummaryShouldReport)
	ctx.Step(`^"([^"]*)" should be a (\d+) Hz (mono|stereo) WAV$`, testCtx.shouldBeAWAV)
	ctx.Step(`^the output directory should contain "([^"]*)"$`, testCtx.theOutputDirectoryShouldContain)
	ctx.Step(`^the model should only have seen (\d+) Hz audio$`, testCtx.theModelShouldOnlyHaveSeen)
	ctx.Step(`^the errors should mention "([^"]*)"$`, testCtx.theErrorsShouldMention)
	ctx.Step(`^the output should not mention "([^"]*)"$`, testCtx.theOutputShouldNotMention)
}

func tone(rate, channels int, seconds float64) media.AudioBuffer {
	frames := int(float64(rate) * seconds)
	buf := media.AudioBuffer{Samples: make([]float32, frames*channels), SampleRate: rate, Channels: channels}
	for i := 0; i < frames; i++ {
		v := float32(0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			buf.Samples[i*channels+c] = v
		}
	}
	return buf
}

func channelCount(layout string) int {
	if layout == "stereo" {
		return 2
	}
	return 1
}

func (e *enhanceContext) addInput(name string) string {
	p := filepath.Join(e.tempDir, name)
	e.inputs = append(e.inputs, p)
	return p
}

func (e *enhanceContext) aWAVFile(rate int, layout, name string) error {
	p := e.addInput(name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return audiofile.WriteWAV(p, tone(rate, channelCount(layout), 0.2))
}

func (e *enhanceContext) aVideoFile(name string) error {
	return os.WriteFile(e.addInput(name), []byte("not really a video"), 0644)
}

func (e *enhanceContext) anInputThatDoesNotExist(name string) error {
	e.addInput(name)
	return nil
}

func (e *enhanceContext) aFileWithUnsupportedContent(name string) error {
	return os.WriteFile(e.addInput(name), []byte("plain text"), 0644)
}

func (e *enhanceContext) ffmpegIsNotInstalled() error {
	e.video.missing = true
	return nil
}

func (e *enhanceContext) theModelCannotBeLoaded() error {
	e.enhancer.loadErr = &media.Error{Kind: media.ErrModelLoadFailure, Detail: "cannot download model weights"}
	return nil
}

func (e *enhanceContext) theOutputSampleRateIs(rate int) error {
	e.outRate = rate
	return nil
}

func (e *enhanceContext) run(quiet bool) error {
	codec := audiofile.NewCodec()
	svc := enhance.NewService(
		e.enhancer,
		e.video,
		e.video,
		codec,
		codec,
		filesystem.NewChecker(),
		enhance.WithOutputDirectory(e.outputDir),
		enhance.WithOutputSampleRate(e.outRate),
		enhance.WithOutput(e.stdout),
	)
	logger := console.NewLogger(e.stdout, e.stderr, console.ColorNever)
	e.err = cmd.RunEnhanceWithDependencies(context.Background(), svc, e.inputs, "", quiet, logger)
	return nil
}

func (e *enhanceContext) iEnhanceTheFiles() error {
	return e.run(false)
}

func (e *enhanceContext) iEnhanceTheFilesQuietly() error {
	return e.run(true)
}

func (e *enhanceContext) theExitCodeShouldBe(code int) error {
	if got := cmd.ExitCode(e.err); got != code {
		return fmt.Errorf("expected exit code %d, got %d (err: %v)\nstderr:\n%s", code, got, e.err, e.stderr.String())
	}
	return nil
}

func (e *enhanceContext) theSummaryShouldReport(ok, failed int) error {
	want := fmt.Sprintf("%d succeeded, %d failed", ok, failed)
	if !strings.Contains(e.stdout.String(), want) {
		return fmt.Errorf("expected summary %q in output:\n%s", want, e.stdout.String())
	}
	return nil
}

func (e *enhanceContext) shouldBeAWAV(name string, rate int, layout string) error {
	buf, err := audiofile.ReadWAV(filepath.Join(e.outputDir, name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if buf.SampleRate != rate {
		return fmt.Errorf("expected %s at %d Hz, got %d Hz", name, rate, buf.SampleRate)
	}
	if buf.Channels != channelCount(layout) {
		return fmt.Errorf("expected %s with %d channels, got %d", name, channelCount(layout), buf.Channels)
	}
	return nil
}

func (e *enhanceContext) theOutputDirectoryShouldContain(name string) error {
	if _, err := os.Stat(filepath.Join(e.outputDir, name)); err != nil {
		entries, _ := os.ReadDir(e.outputDir)
		var names []string
		for _, en := range entries {
			names = append(names, en.Name())
		}
		return fmt.Errorf("expected %s in output directory, found %v", name, names)
	}
	return nil
}

func (e *enhanceContext) theModelShouldOnlyHaveSeen(rate int) error {
	if len(e.enhancer.rates) == 0 {
		return fmt.Errorf("model was never called")
	}
	for _, r := range e.enhancer.rates {
		if r != rate {
			return fmt.Errorf("model saw %d Hz audio, want only %d Hz", r, rate)
		}
	}
	return nil
}

func (e *enhanceContext) theErrorsShouldMention(text string) error {
	if !strings.Contains(e.stderr.String(), text) {
		return fmt.Errorf("expected errors to mention %q, got:\n%s", text, e.stderr.String())
	}
	return nil
}

func (e *enhanceContext) theOutputShouldNotMention(text string) error {
	if strings.Contains(e.stdout.String(), text) {
		return fmt.Errorf("expected output not to mention %q, got:\n%s", text, e.stdout.String())
	}
	return nil
}
