package mockstream

import (
	"context"
	"sync"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/units"
)

// Ensemble repeats a run with consecutive seeds. Runs are independent and
// execute concurrently; each run itself is sequential.
type Ensemble struct {
	gen       *Generator
	numRuns   int
	seedStart uint64
}

func NewEnsemble(gen *Generator, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{gen: gen, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, w0 *dynamics.PhaseSpacePosition, mass units.Quantity, cfg RunConfig) ([]*Stream, error) {
	streams := make([]*Stream, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			gen := *e.gen
			gen.seed = e.seedStart + uint64(idx)
			streams[idx], _, errs[idx] = gen.Run(ctx, w0, mass, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return streams, nil
}
