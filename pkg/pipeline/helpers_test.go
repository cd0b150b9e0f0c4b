package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/askiada/go-mlprep/pkg/pipeline/model"
)

func createInputChan(t *testing.T, total int) chan int {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := range total {
			inputChan <- i
		}
	}()

	return inputChan
}

func processOutputChan(t *testing.T, output <-chan int) []int {
	t.Helper()

	res := []int{}

	for out := range output {
		res = append(res, out)
	}

	return res
}

func emit(total int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

type collector struct {
	mu  sync.Mutex
	got []int
}

func (c *collector) sink(_ context.Context, input int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.got = append(c.got, input)

	return nil
}

func (c *collector) values() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]int(nil), c.got...)
}

// recorder counts every hook call by step name.
type recorder struct {
	mu       sync.Mutex
	newErr   error
	prepared []string
	outputs  map[string]int
	after    []string
	finished bool
}

func newRecorder() *recorder {
	return &recorder{outputs: make(map[string]int)}
}

func (r *recorder) prepare(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prepared = append(r.prepared, name)

	return nil
}

func (r *recorder) output(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outputs[name]++

	return nil
}

func (r *recorder) New() error { return r.newErr }

func (r *recorder) PrepareStep(_, step *model.StepInfo) error { return r.prepare(step.Name) }

func (r *recorder) PrepareSplitter(_, step *model.StepInfo) error { return r.prepare(step.Name) }

func (r *recorder) PrepareMerger(_ []*model.StepInfo, step *model.StepInfo) error {
	return r.prepare(step.Name)
}

func (r *recorder) PrepareSink(_, step *model.StepInfo) error { return r.prepare(step.Name) }

func (r *recorder) OnStepOutput(_, step *model.StepInfo, _, _ time.Duration) error {
	return r.output(step.Name)
}

func (r *recorder) OnSplitterOutput(_, step *model.StepInfo, _, _ time.Duration) error {
	return r.output(step.Name)
}

func (r *recorder) OnMergerOutput(_, step *model.StepInfo, _ time.Duration) error {
	return r.output(step.Name)
}

func (r *recorder) OnSinkOutput(_, step *model.StepInfo, _, _ time.Duration) error {
	return r.output(step.Name)
}

func (r *recorder) AfterSink(step *model.StepInfo, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.after = append(r.after, step.Name)

	return nil
}

func (r *recorder) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true

	return nil
}

var _ model.PipelineOption = (*recorder)(nil)
