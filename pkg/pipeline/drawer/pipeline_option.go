package drawer

import (
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-mlprep/pkg/pipeline/measure"
	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()

	err := pd.AddStep(model.StartStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = pd.AddStep(model.EndStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

// addParent adds a parent built outside of the pipeline, like a plain input channel.
func (pd *pipelineDrawer) addParent(name string) error {
	err := pd.AddStep(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}

	return nil
}

func (pd *pipelineDrawer) addLinked(parentName, name string) error {
	err := pd.addParent(parentName)
	if err != nil {
		return err
	}

	err = pd.AddStep(name)
	if err != nil {
		return err
	}

	return pd.AddLink(parentName, name)
}

func (pd *pipelineDrawer) PrepareStep(parentStep, step *model.StepInfo) error {
	return pd.addLinked(parentStep.Name, step.Name)
}

func (pd *pipelineDrawer) PrepareSplitter(parentStep, splitterStep *model.StepInfo) error {
	return pd.addLinked(parentStep.Name, splitterStep.Name)
}

func (pd *pipelineDrawer) PrepareMerger(parentSteps []*model.StepInfo, step *model.StepInfo) error {
	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}

	for _, parentStep := range parentSteps {
		err := pd.addParent(parentStep.Name)
		if err != nil {
			return err
		}

		err = pd.AddLink(parentStep.Name, step.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) PrepareSink(parentStep, step *model.StepInfo) error {
	err := pd.addLinked(parentStep.Name, step.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(step.Name, model.EndStep.Details.Name)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.SetTotalTime(model.EndStep.Details.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

func (pd *pipelineDrawer) OnStepOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnSplitterOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnMergerOutput(_, _ *model.StepInfo, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnSinkOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterSink(_ *model.StepInfo, _ time.Duration) error {
	return nil
}

// PipelineDrawer returns a pipeline option drawing the pipeline once it finished. measure may be nil;
// otherwise it must also be given to the pipeline, before the drawer, to label the graph with durations.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
