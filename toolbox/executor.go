package toolbox

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Executor runs body over the index range [0, n).  It may split the range
// into disjoint contiguous pieces, but must not return until every piece has
// finished: layers rely on that barrier between their passes.
type Executor interface {
	Run(n int, body func(lo, hi int))
}

// Sequential runs the whole range on the calling goroutine.
type Sequential struct{}

func (Sequential) Run(n int, body func(lo, hi int)) {
	if n > 0 {
		body(0, n)
	}
}

// Partitioned spreads the range over up to Workers goroutines.  Ranges
// shorter than MinChunk per worker use fewer goroutines.
type Partitioned struct {
	Workers  int
	MinChunk int
}

// DefaultPartitioned uses one worker per logical core.
func DefaultPartitioned() Partitioned {
	workers := cpuid.CPU.LogicalCores
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return Partitioned{Workers: workers, MinChunk: 8}
}

func (p Partitioned) Run(n int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	if chunk < p.MinChunk {
		chunk = p.MinChunk
	}
	if chunk >= n {
		body(0, n)
		return
	}

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			body(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
