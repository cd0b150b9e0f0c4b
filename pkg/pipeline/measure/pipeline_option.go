package measure

import (
	"time"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStep.Details.Name, 1)
	pm.AddMetric(model.EndStep.Details.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSplitter(_, splitterStep *model.StepInfo) error {
	pm.AddMetric(splitterStep.Name, splitterStep.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareMerger(_ []*model.StepInfo, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSink(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

func (pm *pipelineMeasure) OnStepOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	mt := pm.GetMetric(step.Name)
	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(parentStep.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSplitterOutput(parentStep, splitterStep *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	mt := pm.GetMetric(splitterStep.Name)
	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(parentStep.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnMergerOutput(parentStep, outputStep *model.StepInfo, iterationDuration time.Duration) error {
	pm.GetMetric(outputStep.Name).AddTransportDuration(parentStep.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSinkOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	mt := pm.GetMetric(step.Name)
	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(parentStep.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) AfterSink(step *model.StepInfo, totalDuration time.Duration) error {
	pm.GetMetric(step.Name).SetTotalDuration(totalDuration)
	pm.GetMetric(model.EndStep.Details.Name).SetTotalDuration(totalDuration)

	return nil
}

// PipelineMeasure returns a pipeline option recording the durations of every step in measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
