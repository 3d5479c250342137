package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs_Predictable(t *testing.T) {
	ids := NewSequentialIDs()
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", ids.NewID().String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", ids.NewID().String())

	ids.Reset()
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", ids.NewID().String())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	ids := NewSequentialIDs()
	const goroutines = 20
	const perGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := ids.NewID().String()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestFixedOperationID(t *testing.T) {
	assert.Equal(t, "op-1", NewFixedOperationID("op-1").Generate())
	assert.Equal(t, "test-operation", NewFixedOperationID("").Generate())
}
