package mockstream

import (
	"fmt"

	"github.com/san-kum/galdyn/internal/dynamo"
)

// ReleaseSteps returns the release epochs of a run of nSteps steps that
// releases every `every` steps. Epochs are spaced back from the final step,
// so the last step always releases and there are nSteps/every + 1 of them.
func ReleaseSteps(nSteps, every int) []int {
	k := nSteps/every + 1
	steps := make([]int, k)
	for i := range steps {
		steps[i] = nSteps - (k-1-i)*every
	}
	return steps
}

// epochCounts resolves the requested particle count of every epoch.
func epochCounts(cfg RunConfig, epochs int) ([]int, error) {
	if cfg.NParticlesPerEpoch == nil {
		counts := make([]int, epochs)
		for i := range counts {
			counts[i] = cfg.NParticles
		}
		return counts, nil
	}

	if len(cfg.NParticlesPerEpoch) != epochs {
		return nil, fmt.Errorf("%w: %d per-epoch particle counts for %d release epochs",
			dynamo.ErrType, len(cfg.NParticlesPerEpoch), epochs)
	}
	for i, n := range cfg.NParticlesPerEpoch {
		if n < 0 {
			return nil, fmt.Errorf("%w: epoch %d requests %d particles", dynamo.ErrParameterBounds, i, n)
		}
	}
	counts := make([]int, epochs)
	copy(counts, cfg.NParticlesPerEpoch)
	return counts, nil
}
