package media

// InputDescriptor describes one input file. SampleRate and Channels are zero
// until samples have been loaded; WithFormat returns a filled-in copy.
type InputDescriptor struct {
	Path       string
	Kind       Kind
	SampleRate int
	Channels   int
}

// Describe classifies path and returns its descriptor
func Describe(path string) InputDescriptor {
	return InputDescriptor{Path: path, Kind: Classify(path)}
}

// WithFormat returns a copy of d carrying the loaded stream format
func (d InputDescriptor) WithFormat(sampleRate, channels int) InputDescriptor {
	d.SampleRate = sampleRate
	d.Channels = channels
	return d
}

// Supported reports whether the input may enter the pipeline
func (d InputDescriptor) Supported() bool {
	return d.Kind != KindUnsupported
}
