package shortcode

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	minIndexCapacity   = 100_000
	indexFalsePositive = 0.01
)

// Index is a bloom-filter membership set over allocated short codes. A
// negative answer is definitive and lets the create-link flow skip the
// database existence check; a positive answer still requires confirmation
// against the system of record.
type Index struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewIndex sizes a filter for at least capacity codes.
func NewIndex(capacity uint) *Index {
	if capacity < minIndexCapacity {
		capacity = minIndexCapacity
	}
	return &Index{
		filter: bloom.NewWithEstimates(capacity, indexFalsePositive),
	}
}

// Seed adds every existing code, typically once at startup.
func (i *Index) Seed(codes []string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, code := range codes {
		i.filter.AddString(code)
	}
}

// Add records a newly allocated code.
func (i *Index) Add(code string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.filter.AddString(code)
}

// MightContain reports whether code may already be allocated. False negatives
// never occur; false positives occur at the configured rate.
func (i *Index) MightContain(code string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.filter.TestString(code)
}
