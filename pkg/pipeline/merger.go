package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

func prepareMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	outputStep := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.MergerStepType,
			Name:       name,
			Concurrent: len(steps),
		},
		Output: make(chan I),
	}

	stepInfos := make([]*model.StepInfo, len(steps))
	for i, step := range steps {
		stepInfos[i] = step.Info()
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareMerger(stepInfos, outputStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before merger function")
		}
	}

	return outputStep, nil
}

func runStepMerger[I any](ctx context.Context, pipe *Pipeline, step, outputStep *model.Step[I]) error {
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-step.Output:
			if !ok {
				return nil
			}

			err := send(ctx, outputStep.Output, entry)
			if err != nil {
				return err
			}

			endIter := time.Since(startIter)
			for _, opt := range pipe.opts {
				err := opt.OnMergerOutput(step.Info(), outputStep.Details, endIter)
				if err != nil {
					return errors.Wrap(err, "unable to run on merger output function")
				}
			}
		}
	}
}

// AddMerger adds a merger step to the pipeline. It merges the output of the steps into a single channel,
// closed once every input is drained. The order of the elements across inputs is not kept.
func AddMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(steps) == 0 {
		return nil, ErrInputMustBeSet
	}

	for _, step := range steps {
		if step == nil {
			return nil, ErrInputMustBeSet
		}
	}

	outputStep, err := prepareMerger(pipe, name, steps...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to prepare merger")
	}

	pipe.spawn(name, func(ctx context.Context) error {
		errGrp, dCtx := errgroup.WithContext(ctx)

		for _, step := range steps {
			errGrp.Go(func() error {
				return runStepMerger(dCtx, pipe, step, outputStep)
			})
		}

		return errGrp.Wait()
	}, func() {
		close(outputStep.Output)
	})

	return outputStep, nil
}
