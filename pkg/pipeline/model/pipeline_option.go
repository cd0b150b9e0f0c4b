package model

import "time"

// PipelineOption hooks into the life cycle of a pipeline. The Prepare methods run while the
// pipeline is built, the On methods every time a step pushes an element downstream.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStepOption
	pipelineSplitterOption
	pipelineMergerOption
	pipelineSinkOption

	// Finish runs after the pipeline is finished.
	Finish() error
}

type pipelineStepOption interface {
	PrepareStep(parentStep, step *StepInfo) error
	OnStepOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
}

type pipelineSplitterOption interface {
	PrepareSplitter(parentStep, splitterStep *StepInfo) error
	OnSplitterOutput(parentStep, splitterStep *StepInfo, iterationDuration, computationDuration time.Duration) error
}

type pipelineMergerOption interface {
	PrepareMerger(parentSteps []*StepInfo, step *StepInfo) error
	OnMergerOutput(parentStep, outputStep *StepInfo, iterationDuration time.Duration) error
}

type pipelineSinkOption interface {
	PrepareSink(parentStep, step *StepInfo) error
	OnSinkOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink runs once the sink has consumed its whole input.
	AfterSink(step *StepInfo, totalDuration time.Duration) error
}
