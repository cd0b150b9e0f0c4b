package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrInputMustBeSet    = errors.New("input must be set")
	ErrSplitterTotal     = errors.New("total must be greater than 0")
	ErrAlreadyRun        = errors.New("pipeline already run")
)

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.list = append(ec.list, errChan)
}

func (ec *errorChans) all() []*errorChan {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	return append([]*errorChan(nil), ec.list...)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors merges multiple channels of errors, prefixing each error with the step name.
// Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup

	// out can hold one error per channel so senders never block once the reader returned early.
	out := make(chan error, len(cs))

	output := func(c *errorChan) {
		defer wg.Done()

		if c.c == nil {
			return
		}

		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}

	wg.Add(len(cs))

	for _, c := range cs {
		go output(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// waitForPipeline returns the first error received from errs, or nil once all of them are closed.
func waitForPipeline(errs ...*errorChan) error {
	for err := range mergeErrors(errs...) {
		if err != nil {
			return err
		}
	}

	return nil
}
