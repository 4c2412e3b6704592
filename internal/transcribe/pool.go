package transcribe

import (
	"context"
	"sync"
)

// runIndexed invokes fn(i) for i in [0, n) with at most workers running at
// once. Callers pre-size a slot slice and have each fn write only its own
// index, which keeps results ordered without locks. Cancellation stops new
// dispatches; in-flight calls notice through their own context use.
func runIndexed(ctx context.Context, workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
