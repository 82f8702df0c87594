package enhance

import (
	"context"
	"fmt"
	"io"
	"time"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/filesystem"
)

// Service runs the per-file enhancement pipeline:
// classify, extract or load, resample to the model rate, enhance, resample
// to the output rate, then remux or save, and optionally publish.
type Service struct {
	enhancer    media.Enhancer
	extractor   media.AudioExtractor
	muxer       media.Muxer
	loader      media.AudioLoader
	writer      media.AudioWriter
	fileChecker media.FileChecker
	publisher   media.Publisher

	outputDir  string
	outputRate int
	output     io.Writer
}

// Option configures optional Service behaviour
type Option func(*Service)

// WithPublisher uploads every finished output
func WithPublisher(p media.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithOutputDirectory sets where default-named outputs are written
func WithOutputDirectory(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithOutputSampleRate sets the rate of saved audio; zero keeps the model rate
func WithOutputSampleRate(rate int) Option {
	return func(s *Service) {
		s.outputRate = rate
	}
}

// WithOutput sets where step-by-step progress is written
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// NewService creates a new enhancement pipeline
func NewService(
	enhancer media.Enhancer,
	extractor media.AudioExtractor,
	muxer media.Muxer,
	loader media.AudioLoader,
	writer media.AudioWriter,
	fileChecker media.FileChecker,
	opts ...Option,
) *Service {
	s := &Service{
		enhancer:    enhancer,
		extractor:   extractor,
		muxer:       muxer,
		loader:      loader,
		writer:      writer,
		fileChecker: fileChecker,
		outputDir:   media.DefaultOutputDirectory,
		output:      io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessFile enhances one input. An empty outputPath selects
// <output dir>/<stem>_enhanced<ext>. It returns the written path.
func (s *Service) ProcessFile(ctx context.Context, inputPath, outputPath string) (string, error) {
	res := s.Process(ctx, inputPath, outputPath)
	return res.OutputPath, res.Err
}

// ProcessBatch enhances inputs in order and returns exactly one result per
// input. A failure only affects its own file. Inputs whose default output
// names collide get " - dupN" variants, and no output may land on another
// input of the batch.
func (s *Service) ProcessBatch(ctx context.Context, inputs []string) []media.ProcessingResult {
	claims := media.NewOutputClaims()
	for _, input := range inputs {
		claims.Reserve(input)
	}
	results := make([]media.ProcessingResult, 0, len(inputs))
	for i, input := range inputs {
		fmt.Fprintf(s.output, "(%d/%d) %s\n", i+1, len(inputs), input)
		results = append(results, s.process(ctx, input, "", claims))
		fmt.Fprintln(s.output)
	}
	return results
}

// Process enhances one input and reports how far it got
func (s *Service) Process(ctx context.Context, inputPath, outputPath string) media.ProcessingResult {
	return s.process(ctx, inputPath, outputPath, nil)
}

// run tracks the state of one file through the pipeline
type run struct {
	res   media.ProcessingResult
	steps int
	step  int
	out   io.Writer
}

func (r *run) advance(stage media.Stage) {
	r.res.Stage = stage
}

func (r *run) fail(err error) media.ProcessingResult {
	r.res.FailedAt = r.res.Stage
	r.res.Stage = media.StageFailed
	r.res.Err = err
	return r.res
}

func (r *run) begin(format string, args ...any) {
	r.step++
	fmt.Fprintf(r.out, "[%d/%d] %s\n", r.step, r.steps, fmt.Sprintf(format, args...))
}

// asKind keeps an already classified error and wraps anything else as kind
func asKind(err error, kind media.ErrorKind, path string) error {
	if media.KindOf(err) != media.ErrUnknown {
		return err
	}
	return &media.Error{Kind: kind, Path: path, Err: err}
}

func (s *Service) process(ctx context.Context, inputPath, outputPath string, claims *media.OutputClaims) media.ProcessingResult {
	r := &run{
		res:   media.ProcessingResult{Input: media.Describe(inputPath), Stage: media.StagePending},
		steps: 3,
		out:   s.output,
	}
	if s.publisher != nil {
		r.steps++
	}

	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("%s: not processed: %w", inputPath, err))
	}

	// Classification never touches the filesystem
	if !r.res.Input.Supported() {
		return r.fail(media.UnsupportedFormatError(inputPath))
	}
	r.advance(media.StageClassified)

	if !s.fileChecker.Exists(inputPath) {
		return r.fail(&media.Error{Kind: media.ErrFilesystem, Path: inputPath, Detail: "input file does not exist"})
	}

	target, err := s.resolveOutput(inputPath, outputPath, claims)
	if err != nil {
		return r.fail(err)
	}

	buf, err := s.read(ctx, r, inputPath)
	if err != nil {
		return r.fail(err)
	}
	r.advance(media.StageExtracted)
	r.res.Input = r.res.Input.WithFormat(buf.SampleRate, buf.Channels)

	native := s.enhancer.NativeRate()
	if buf.SampleRate != native {
		fmt.Fprintf(r.out, "      Resampling %d Hz -> %d Hz\n", buf.SampleRate, native)
		if buf, err = media.Resample(buf, native); err != nil {
			return r.fail(&media.Error{Kind: media.ErrExtractionFailure, Path: inputPath, Detail: "cannot resample input audio", Err: err})
		}
	}
	r.advance(media.StageResampledIn)

	r.begin("Enhancing audio (%s)...", buf.Duration().Round(100*time.Millisecond))
	if !s.enhancer.Ready() {
		if err := s.enhancer.Load(ctx); err != nil {
			return r.fail(asKind(err, media.ErrModelLoadFailure, inputPath))
		}
	}
	enhanced, err := s.enhancer.Enhance(ctx, buf)
	if err != nil {
		return r.fail(asKind(withPath(err, inputPath), media.ErrInferenceFailure, inputPath))
	}
	r.advance(media.StageEnhanced)

	outRate := s.outputRate
	if outRate == 0 {
		outRate = native
	}
	if enhanced.SampleRate != outRate {
		fmt.Fprintf(r.out, "      Resampling %d Hz -> %d Hz\n", enhanced.SampleRate, outRate)
		if enhanced, err = media.Resample(enhanced, outRate); err != nil {
			return r.fail(&media.Error{Kind: media.ErrFilesystem, Path: target, Detail: "cannot resample output audio", Err: err})
		}
	}
	r.advance(media.StageResampledOut)

	if err := s.write(ctx, r, inputPath, target, enhanced); err != nil {
		return r.fail(err)
	}
	r.res.OutputPath = target
	fmt.Fprintf(r.out, "      Created: %s\n", target)

	if s.publisher != nil {
		r.begin("Publishing...")
		url, err := s.publisher.Publish(ctx, target)
		if err != nil {
			return r.fail(asKind(err, media.ErrPublishFailure, target))
		}
		r.res.ShareURL = url
		fmt.Fprintf(r.out, "      Link: %s\n", url)
	}

	r.advance(media.StageDone)
	return r.res
}

// resolveOutput picks the output path and makes sure its directory exists
func (s *Service) resolveOutput(inputPath, outputPath string, claims *media.OutputClaims) (string, error) {
	target := outputPath
	if target == "" {
		target = media.DefaultOutputPath(inputPath, s.outputDir)
	}
	if claims != nil {
		target = claims.Claim(inputPath, target)
	}

	if media.SamePath(target, inputPath) {
		return "", &media.Error{Kind: media.ErrFilesystem, Path: inputPath, Detail: "output path is the input file; refusing to overwrite it"}
	}
	if err := filesystem.EnsureParentDir(target); err != nil {
		return "", &media.Error{Kind: media.ErrFilesystem, Path: target, Err: err}
	}
	return target, nil
}

func (s *Service) read(ctx context.Context, r *run, inputPath string) (media.AudioBuffer, error) {
	if r.res.Input.Kind == media.KindVideo {
		r.begin("Extracting audio...")
		buf, err := s.extractor.Extract(ctx, inputPath)
		if err != nil {
			return media.AudioBuffer{}, asKind(err, media.ErrExtractionFailure, inputPath)
		}
		return buf, nil
	}

	r.begin("Reading audio...")
	buf, err := s.loader.Load(ctx, inputPath)
	if err != nil {
		return media.AudioBuffer{}, asKind(err, media.ErrExtractionFailure, inputPath)
	}
	if err := buf.Validate(); err != nil {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: inputPath, Detail: "decoded audio is invalid", Err: err}
	}
	return buf, nil
}

func (s *Service) write(ctx context.Context, r *run, inputPath, target string, buf media.AudioBuffer) error {
	if r.res.Input.Kind == media.KindVideo {
		r.begin("Remuxing video...")
		if err := s.muxer.Remux(ctx, inputPath, buf, target); err != nil {
			return asKind(err, media.ErrMuxingFailure, inputPath)
		}
		r.advance(media.StageReassembled)
		return nil
	}

	r.begin("Saving audio...")
	if err := s.writer.Write(ctx, target, buf); err != nil {
		return asKind(err, media.ErrFilesystem, target)
	}
	r.advance(media.StageSaved)
	return nil
}

// withPath fills in the input path on a pipeline error raised by an adapter
// that does not know which file it is working on
func withPath(err error, path string) error {
	if e, ok := err.(*media.Error); ok && e.Path == "" {
		cp := *e
		cp.Path = path
		return &cp
	}
	return err
}
