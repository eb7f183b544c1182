package geolib

import (
	"context"
	"fmt"
	"sync"
)

// ResolveResult is a result of a single input from a batch.
type ResolveResult struct {
	Input    Input             `json:"input"`
	Location *ResolvedLocation `json:"location,omitempty"`
	Err      error             `json:"-"`
}

type resolveTask struct {
	ctx    context.Context
	input  Input
	opts   ResolveOptions
	result *ResolveResult
	wg     *sync.WaitGroup
}

// ResolveAll resolves a batch of inputs on a worker pool. Results have
// the same order as inputs. If context is closed, unscheduled inputs
// are reported with ErrContextIsClosed.
func (l *LocationResolver) ResolveAll(ctx context.Context, inputs []Input, opts ResolveOptions) ([]ResolveResult, error) {
	l.rwmutex.RLock()
	defer l.rwmutex.RUnlock()

	if l.closed {
		return nil, ErrResolverShutdown
	}

	rv := make([]ResolveResult, len(inputs))
	wg := &sync.WaitGroup{}

	for i := range inputs {
		rv[i].Input = inputs[i]

		select {
		case <-ctx.Done():
			rv[i].Err = ErrContextIsClosed

			continue
		default:
		}

		wg.Add(1)

		task := &resolveTask{
			ctx:    ctx,
			input:  inputs[i],
			opts:   opts,
			result: &rv[i],
			wg:     wg,
		}

		if err := l.workerPool.Invoke(task); err != nil {
			wg.Done()

			rv[i].Err = fmt.Errorf("cannot schedule a task: %w", err)
		}
	}

	wg.Wait()

	return rv, nil
}

func (l *LocationResolver) resolveTask(args interface{}) {
	task := args.(*resolveTask)
	defer task.wg.Done()

	location, err := l.resolve(task.ctx, task.input, task.opts)
	if err != nil {
		task.result.Err = err

		return
	}

	task.result.Location = &location
}
