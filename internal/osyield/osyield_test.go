package osyield

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestYieldMakesProgress(t *testing.T) {
	var (
		wg    sync.WaitGroup
		ready atomic.Bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ready.Store(true)
	}()
	for !ready.Load() {
		Yield()
	}
	wg.Wait()
}
