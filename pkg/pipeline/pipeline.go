package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context //nolint:containedctx // steps are started by Run
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
	running   sync.WaitGroup
	ran       atomic.Bool
}

// New creates a new pipeline. ctx bounds the whole run.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	pipe := &Pipeline{
		ctx:       ctx,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// Run starts every step and waits for them to finish. On the first error, it cancels the other
// steps, waits for them to stop and returns that error.
func (p *Pipeline) Run() error {
	if !p.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	p.startTime = time.Now()

	for _, fn := range p.goFn {
		p.running.Add(1)

		go func() {
			defer p.running.Done()

			fn(ctx)
		}()
	}

	err := waitForPipeline(p.errcList.all()...)
	if err != nil {
		cancel()
		p.running.Wait()

		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

// spawn registers fn to be started by Run. done runs once fn returned.
func (p *Pipeline) spawn(name string, fn func(ctx context.Context) error, done func()) {
	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	p.goFn = append(p.goFn, func(ctx context.Context) {
		defer close(errC)

		if done != nil {
			defer done()
		}

		err := fn(ctx)
		if err != nil {
			errC <- err
		}
	})
}

func send[O any](ctx context.Context, output chan<- O, out O) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- out:
		return nil
	}
}
