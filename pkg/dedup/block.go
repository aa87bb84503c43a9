package dedup

import "hash/crc32"

// BlockSize is the fixed unit of indexing and cloning, in bytes. All
// dedup-eligible offsets and counts are multiples of it.
const BlockSize = 4096

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Fingerprint computes the 32-bit content fingerprint of a full block: a
// CRC32-C over its bytes.
//
// Fingerprints are not collision-resistant. Every index lookup is
// followed by a byte-for-byte verification against the claimed source,
// so colliding blocks cost a wasted verification, never wrong content.
func Fingerprint(block []byte) uint32 {
	return crc32.Checksum(block, castagnoli)
}
