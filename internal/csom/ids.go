package csom

// Allocator hands out node ids for one graph.
//
// Object paths and actions share a single Allocator, so an id is unique
// across both lists. Every call to Next returns a value strictly greater
// than the previous one; ids are never reused.
//
// An Allocator belongs to exactly one Graph and is not safe for
// concurrent use. Independent operations build independent graphs.
type Allocator struct {
	last int
}

// NewAllocator creates an allocator whose first id is 1.
// Zero is never allocated and means "no parent" on object paths.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorAt creates an allocator whose first id is base+1.
func NewAllocatorAt(base int) *Allocator {
	if base < 0 {
		base = 0
	}
	return &Allocator{last: base}
}

// Next returns the next id.
func (a *Allocator) Next() int {
	a.last++
	return a.last
}

// Current returns the last id handed out without allocating.
func (a *Allocator) Current() int {
	return a.last
}
