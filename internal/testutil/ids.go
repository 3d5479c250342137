package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs hands out predictable object Guids for tests.
//
// The n-th call to NewID returns 00000000-0000-4000-8000-<n as 12 digits>,
// so a scenario run twice produces byte-identical requests.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first Guid ends in ...000000000001.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next Guid.
func (s *SequentialIDs) NewID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", s.seq))
}

// Reset restarts the sequence. After Reset the next Guid ends in ...01.
func (s *SequentialIDs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}

// FixedOperationID generates the same operation id every time.
//
// Thread-safety: FixedOperationID is stateless and safe for concurrent use.
type FixedOperationID struct {
	id string
}

// NewFixedOperationID creates a fixed generator. An empty id becomes
// "test-operation".
func NewFixedOperationID(id string) *FixedOperationID {
	if id == "" {
		id = "test-operation"
	}
	return &FixedOperationID{id: id}
}

// Generate returns the fixed id.
func (g *FixedOperationID) Generate() string {
	return g.id
}
