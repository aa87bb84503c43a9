package index

import (
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Bloom filter sizing. 0.1% false positives at a million distinct
// fingerprints keeps wasted backing-store round-trips negligible.
const (
	bloomEstimatedItems    = 1 << 20
	bloomFalsePositiveRate = 0.001
)

// Bloomed decorates an [Index] with a bloom filter so lookups of
// never-inserted fingerprints skip the backing store entirely. With a
// remote backing store that turns most cold misses into a local bit
// test instead of a network round-trip.
//
// The filter only tracks fingerprints inserted through this decorator;
// entries already present in a shared external store are invisible to
// it until re-inserted. A false positive degrades to a backing-store
// miss.
type Bloomed struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	inner  Index
}

// NewBloomed wraps inner with a fresh filter.
func NewBloomed(inner Index) *Bloomed {
	return &Bloomed{
		filter: bloom.NewWithEstimates(bloomEstimatedItems, bloomFalsePositiveRate),
		inner:  inner,
	}
}

// Get consults the filter first; a definite miss never reaches the
// backing store.
func (b *Bloomed) Get(fp uint32) (Entry, bool, error) {
	b.mu.Lock()
	hit := b.filter.Test(bloomKey(fp))
	b.mu.Unlock()

	if !hit {
		return Entry{}, false, nil
	}

	return b.inner.Get(fp)
}

// Set records fp in the filter and the entry in the backing store.
func (b *Bloomed) Set(fp uint32, entry Entry) error {
	b.mu.Lock()
	b.filter.Add(bloomKey(fp))
	b.mu.Unlock()

	return b.inner.Set(fp, entry)
}

// Close closes the backing store.
func (b *Bloomed) Close() error {
	return b.inner.Close()
}

// bloomKey encodes a fingerprint for the filter.
func bloomKey(fp uint32) []byte {
	var k [4]byte

	binary.LittleEndian.PutUint32(k[:], fp)

	return k[:]
}
