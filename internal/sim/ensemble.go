package sim

import (
	"context"
	"fmt"
	"sync"
)

// Factory builds the simulator for one cycle. Each cycle gets a fresh
// controller and fleet.
type Factory func(cycle int) (*Simulator, error)

// Ensemble runs independent repetitions of a scenario.
type Ensemble struct {
	factory Factory
	cycles  int
	workers int
}

func NewEnsemble(factory Factory, cycles int) *Ensemble {
	return &Ensemble{factory: factory, cycles: cycles}
}

// WithWorkers bounds the number of cycles running at once. Zero means all.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	e.workers = n
	return e
}

// Run returns results in cycle order. The error of the lowest failing cycle
// is returned; cycles not yet started when ctx is cancelled are skipped.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	if e.cycles < 1 {
		return nil, fmt.Errorf("sim: ensemble needs at least one cycle, got %d", e.cycles)
	}
	results := make([]*Result, e.cycles)
	errs := make([]error, e.cycles)

	workers := e.workers
	if workers <= 0 || workers > e.cycles {
		workers = e.cycles
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := 0; i < e.cycles; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}
			s, err := e.factory(idx)
			if err != nil {
				errs[idx] = fmt.Errorf("cycle %d: %w", idx, err)
				return
			}
			res, err := s.Run()
			if err != nil {
				errs[idx] = fmt.Errorf("cycle %d: %w", idx, err)
				return
			}
			results[idx] = res
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
