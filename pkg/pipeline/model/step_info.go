package model

// StepType tells which kind of node a step is in the pipeline graph.
type StepType string

const (
	RootStepType     StepType = "root"
	NormalStepType   StepType = "step"
	SplitterStepType StepType = "splitter"
	SinkStepType     StepType = "sink"
	MergerStepType   StepType = "merger"
)

// StepInfo describes a step to the pipeline options.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	BufferSize int
}

var (
	// StartStep is the virtual parent of every root step.
	StartStep = &Step[any]{Details: &StepInfo{Type: RootStepType, Name: "start"}}
	// EndStep is the virtual child of every sink.
	EndStep = &Step[any]{Details: &StepInfo{Type: SinkStepType, Name: "end"}}
)

// Step is the output side of a pipeline step. Downstream steps read from Output.
type Step[O any] struct {
	Output   chan O
	KeepOpen bool
	Details  *StepInfo
}

// Info returns the step details, or placeholder details named "input" for a step built outside of
// a pipeline.
func (s *Step[O]) Info() *StepInfo {
	if s.Details == nil {
		s.Details = &StepInfo{Type: RootStepType, Name: "input", Concurrent: 1}
	}

	return s.Details
}
