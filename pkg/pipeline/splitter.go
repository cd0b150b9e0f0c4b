package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

// Splitter copies every element of its input to Total output steps.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	mainStep      *model.Step[I]
	splittedSteps []*model.Step[I]
	bufferSize    int
	Total         int
}

// SplitterOption configures a splitter.
type SplitterOption[I any] func(s *Splitter[I])

// SplitterBufferSize sets the capacity of each output of the splitter. It defaults to 1.
func SplitterBufferSize[I any](size int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = size
	}
}

// Get returns the next unused output of the splitter. It returns false once all of them were handed out.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	step := s.splittedSteps[s.currIdx]
	s.currIdx++

	return step, true
}

// AddSplitter adds a step sending each element of input to total outputs, retrieved with Get.
// Every output must be consumed or the splitter blocks once its buffer is full.
func AddSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	splitter := &Splitter[I]{
		Total: total,
		mainStep: &model.Step[I]{
			Details: &model.StepInfo{
				Type:       model.SplitterStepType,
				Name:       name,
				Concurrent: 1,
			},
		},
	}

	for _, opt := range opts {
		opt(splitter)
	}

	if splitter.bufferSize < 1 {
		splitter.bufferSize = 1
	}

	splitter.mainStep.Details.BufferSize = splitter.bufferSize

	splitter.splittedSteps = make([]*model.Step[I], total)
	for i := range splitter.splittedSteps {
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: splitter.mainStep.Details,
			Output:  make(chan I, splitter.bufferSize),
		}
	}

	for _, opt := range p.opts {
		err := opt.PrepareSplitter(input.Info(), splitter.mainStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before splitter function")
		}
	}

	p.spawn(name, func(ctx context.Context) error {
		return runSplitter(ctx, p, input, splitter)
	}, func() {
		for _, step := range splitter.splittedSteps {
			close(step.Output)
		}
	})

	return splitter, nil
}

func runSplitter[I any](ctx context.Context, p *Pipeline, input *model.Step[I], splitter *Splitter[I]) error {
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			for _, step := range splitter.splittedSteps {
				err := send(ctx, step.Output, entry)
				if err != nil {
					return err
				}
			}

			endFn := time.Since(startFn)
			endIter := time.Since(startIter) - endFn

			for _, opt := range p.opts {
				err := opt.OnSplitterOutput(input.Info(), splitter.mainStep.Details, endIter, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on splitter output function")
				}
			}
		}
	}
}
