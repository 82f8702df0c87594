package media

// Stage is a state of the per-file pipeline
type Stage int

const (
	StagePending Stage = iota
	StageClassified
	StageExtracted
	StageResampledIn
	StageEnhanced
	StageResampledOut
	StageReassembled
	StageSaved
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageClassified:
		return "CLASSIFIED"
	case StageExtracted:
		return "EXTRACTED"
	case StageResampledIn:
		return "RESAMPLED_IN"
	case StageEnhanced:
		return "ENHANCED"
	case StageResampledOut:
		return "RESAMPLED_OUT"
	case StageReassembled:
		return "REASSEMBLED"
	case StageSaved:
		return "SAVED"
	case StageDone:
		return "DONE"
	case StageFailed:
		return "FAILED"
	default:
		return "PENDING"
	}
}

// ProcessingResult is the terminal record of one file's pipeline run
type ProcessingResult struct {
	Input      InputDescriptor
	OutputPath string
	Stage      Stage // DONE or FAILED once the run is over
	FailedAt   Stage // last stage reached before the failure
	Err        error
	ShareURL   string // set when the output was published
}

// Success reports whether the file was processed without error
func (r ProcessingResult) Success() bool {
	return r.Err == nil && r.Stage == StageDone
}

// ErrorKind returns the failure kind, or ErrUnknown for a success
func (r ProcessingResult) ErrorKind() ErrorKind {
	return KindOf(r.Err)
}

// Summary counts outcomes across a batch
type Summary struct {
	Succeeded int
	Failed    int
}

// Summarize counts succeeded and failed results
func Summarize(results []ProcessingResult) Summary {
	var s Summary
	for _, r := range results {
		if r.Success() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// AllSucceeded reports whether no result failed
func (s Summary) AllSucceeded() bool {
	return s.Failed == 0
}
