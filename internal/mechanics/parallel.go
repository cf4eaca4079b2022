package mechanics

import (
	"runtime"
	"sync"
)

// ParallelFor executes fn over [0, n) split into static contiguous ranges,
// one goroutine per range. workers <= 0 uses GOMAXPROCS.
func ParallelFor(n, minChunk, workers int, fn func(start, end int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// maxReducer collects the maximum of values observed from several goroutines.
type maxReducer struct {
	mu sync.Mutex
	v  float64
}

func (m *maxReducer) observe(v float64) {
	m.mu.Lock()
	if v > m.v {
		m.v = v
	}
	m.mu.Unlock()
}

func (m *maxReducer) value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v
}
