package dedup

import "sync/atomic"

// stats holds the shim's internal counters.
type stats struct {
	fallbackCalls atomic.Uint64
	missBlocks    atomic.Uint64
	hitBlocks     atomic.Uint64
	verifyRejects atomic.Uint64
	clonedBlocks  atomic.Uint64
	indexedBlocks atomic.Uint64
}

// Stats is a point-in-time snapshot of a shim's counters.
type Stats struct {
	// FallbackCalls counts whole calls routed untouched to the
	// underlying primitive (append-mode, short or unaligned payloads,
	// failed classification).
	FallbackCalls uint64 `json:"fallback_calls"`

	// MissBlocks counts blocks written literally because the index held
	// no usable entry.
	MissBlocks uint64 `json:"miss_blocks"`

	// HitBlocks counts index hits, before verification.
	HitBlocks uint64 `json:"hit_blocks"`

	// VerifyRejects counts hits discarded because the source re-read was
	// short or the bytes mismatched.
	VerifyRejects uint64 `json:"verify_rejects"`

	// ClonedBlocks counts blocks replaced by a successful range clone.
	ClonedBlocks uint64 `json:"cloned_blocks"`

	// IndexedBlocks counts blocks added to the index by the read path.
	IndexedBlocks uint64 `json:"indexed_blocks"`
}

// Stats returns a snapshot of the shim's counters.
func (s *Shim) Stats() Stats {
	return Stats{
		FallbackCalls: s.stats.fallbackCalls.Load(),
		MissBlocks:    s.stats.missBlocks.Load(),
		HitBlocks:     s.stats.hitBlocks.Load(),
		VerifyRejects: s.stats.verifyRejects.Load(),
		ClonedBlocks:  s.stats.clonedBlocks.Load(),
		IndexedBlocks: s.stats.indexedBlocks.Load(),
	}
}
