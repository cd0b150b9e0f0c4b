package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.StepInfo, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	details := &model.StepInfo{
		Type:       model.SinkStepType,
		Name:       name,
		Concurrent: 1,
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Info(), details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before sink function")
		}
	}

	return details, nil
}

func (p *Pipeline) afterSink(details *model.StepInfo) error {
	for _, opt := range p.opts {
		err := opt.AfterSink(details, time.Since(p.startTime))
		if err != nil {
			return errors.Wrap(err, "unable to run after sink function")
		}
	}

	return nil
}

// AddSink adds a step consuming every element of input with sinkFn, one at a time.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	details, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	pipe.spawn(name, func(ctx context.Context) error {
		for {
			startIter := time.Now()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case in, ok := <-input.Output:
				if !ok {
					return pipe.afterSink(details)
				}

				startFn := time.Now()

				err := sinkFn(ctx, in)
				if err != nil {
					return err
				}

				endFn := time.Since(startFn)

				for _, opt := range pipe.opts {
					err := opt.OnSinkOutput(input.Info(), details, time.Since(startIter)-endFn, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on sink output function")
					}
				}
			}
		}
	}, nil)

	return nil
}

// AddSinkFromChan adds a step handing the whole input channel to sinkFn. sinkFn must drain the
// channel or return once ctx is done.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input <-chan I) error) error {
	details, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	pipe.spawn(name, func(ctx context.Context) error {
		err := sinkFn(ctx, input.Output)
		if err != nil {
			return err
		}

		return pipe.afterSink(details)
	}, nil)

	return nil
}
