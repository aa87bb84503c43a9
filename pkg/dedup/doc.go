// Package dedup transparently rewrites block-aligned writes to exploit
// copy-on-write cloning where identical block content already exists on
// disk.
//
// A host routes its descriptor I/O through the four entry points
// ([Write], [Pwrite], [Read], [Pread]; or the equivalent [Shim] methods).
// For each 4096-byte block of a write, the shim fingerprints the content,
// consults an index of previously observed blocks, verifies a candidate
// match byte-for-byte against the source file, and replaces the write
// with a kernel range clone when the match holds. Reads are interposed
// only to add the blocks they observe to the index.
//
// Host-visible semantics are preserved exactly: the byte count returned,
// the file position afterwards, and the bytes any subsequent read
// observes are identical to routing the call straight to the underlying
// primitive, with one exception: a dedup-eligible write whose length is
// not a multiple of 4096 writes and reports only its whole blocks, and
// leaves the trailing partial block to the caller. Calls the shim cannot
// handle safely (append-mode
// descriptors, short or unaligned payloads, unresolvable descriptors)
// pass through untouched. The contract is: never make I/O fail that
// would otherwise have succeeded.
//
// Example usage:
//
//	f, _ := os.OpenFile("out.bin", os.O_RDWR|os.O_CREATE, 0o644)
//	defer f.Close()
//
//	n, err := dedup.Write(int(f.Fd()), block) // block is a 4096-byte multiple
//
// The package-level entry points share one process-wide shim configured
// from the environment on first use. Construct a [Shim] explicitly to
// control the index implementation or inject dependencies.
package dedup
