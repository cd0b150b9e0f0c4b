package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

// StepOption configures a step.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many workers consume the input of the step.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepBufferSize sets the capacity of the output channel of the step.
func StepBufferSize[O any](size int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.BufferSize = size
	}
}

// StepKeepOpen leaves the output channel open once the step is done.
func StepKeepOpen[O any]() StepOption[O] {
	return func(s *model.Step[O]) {
		s.KeepOpen = true
	}
}

func newStep[O any](stepType model.StepType, name string, opts ...StepOption[O]) *model.Step[O] {
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       stepType,
			Name:       name,
			Concurrent: 1,
		},
	}

	for _, opt := range opts {
		opt(step)
	}

	if step.Details.Concurrent < 1 {
		step.Details.Concurrent = 1
	}

	step.Output = make(chan O, max(step.Details.BufferSize, 0))

	return step
}

type outputHook func(iterationDuration, computationDuration time.Duration) error

func (p *Pipeline) prepareStep(parent, step *model.StepInfo) error {
	for _, opt := range p.opts {
		err := opt.PrepareStep(parent, step)
		if err != nil {
			return errors.Wrap(err, "unable to run before step function")
		}
	}

	return nil
}

func (p *Pipeline) onStepOutput(parent, step *model.StepInfo) outputHook {
	return func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range p.opts {
			err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run on step output function")
			}
		}

		return nil
	}
}

func closeOutput[O any](step *model.Step[O]) func() {
	return func() {
		if !step.KeepOpen {
			close(step.Output)
		}
	}
}

// AddRootStep adds a step producing elements with stepFn. stepFn must stop sending once ctx is done.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := newStep(model.RootStepType, name, opts...)

	err := p.prepareStep(model.StartStep.Details, step.Details)
	if err != nil {
		return nil, err
	}

	p.spawn(name, func(ctx context.Context) error {
		return stepFn(ctx, step.Output)
	}, closeOutput(step))

	return step, nil
}

// AddStepOneToOne adds a step emitting one element for each input element.
func AddStepOneToOne[I any, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := addStep(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	hook := p.onStepOutput(input.Info(), step.Details)

	p.spawn(name, func(ctx context.Context) error {
		return runOneToOne(ctx, input, step, oneToOneFn, hook)
	}, closeOutput(step))

	return step, nil
}

// AddStepOneToMany adds a step emitting any number of elements for each input element.
func AddStepOneToMany[I any, O any](p *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := addStep(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	hook := p.onStepOutput(input.Info(), step.Details)

	p.spawn(name, func(ctx context.Context) error {
		return runOneToMany(ctx, input, step, oneToManyFn, hook)
	}, closeOutput(step))

	return step, nil
}

func addStep[I any, O any](p *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := newStep(model.NormalStepType, name, opts...)

	err := p.prepareStep(input.Info(), step.Details)
	if err != nil {
		return nil, err
	}

	return step, nil
}

// runWorkers starts concurrent consumers of input. Each consumer stops as soon as one of them fails.
func runWorkers[I any](ctx context.Context, input *model.Step[I], concurrent int, consume func(ctx context.Context, in I, start time.Time) error) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(max(concurrent, 1))

	for goIdx := range max(concurrent, 1) {
		errGrp.Go(func() error {
			for {
				start := time.Now()
				select {
				case <-dCtx.Done():
					return errors.Wrapf(dCtx.Err(), "go routine %d", goIdx)
				case in, ok := <-input.Output:
					if !ok {
						return nil
					}

					err := consume(dCtx, in, start)
					if err != nil {
						return errors.Wrapf(err, "go routine %d", goIdx)
					}
				}
			}
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), hook outputHook) error {
	return runWorkers(ctx, input, output.Info().Concurrent, func(ctx context.Context, in I, start time.Time) error {
		startFn := time.Now()

		out, err := oneToOneFn(ctx, in)
		if err != nil {
			return err
		}

		endFn := time.Since(startFn)

		// the context is checked again so running workers stop adding elements once one failed
		err = send(ctx, output.Output, out)
		if err != nil {
			return err
		}

		if hook == nil {
			return nil
		}

		return hook(time.Since(start)-endFn, endFn)
	})
}

func runOneToMany[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), hook outputHook) error {
	return runWorkers(ctx, input, output.Info().Concurrent, func(ctx context.Context, in I, start time.Time) error {
		startFn := time.Now()

		outs, err := oneToManyFn(ctx, in)
		if err != nil {
			return err
		}

		endFn := time.Since(startFn)

		for _, out := range outs {
			err = send(ctx, output.Output, out)
			if err != nil {
				return err
			}
		}

		if hook == nil {
			return nil
		}

		return hook(time.Since(start)-endFn, endFn)
	})
}
