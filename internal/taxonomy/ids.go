package taxonomy

import "github.com/google/uuid"

// OperationIDGenerator produces the id shared by every round trip of one
// operation.
type OperationIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 operation ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ObjectIDGenerator produces the Guid of an object whose caller did not
// choose one.
type ObjectIDGenerator interface {
	NewID() uuid.UUID
}

// RandomIDs generates random (version 4) Guids.
type RandomIDs struct{}

// NewID returns a new random Guid.
func (RandomIDs) NewID() uuid.UUID {
	return uuid.New()
}
