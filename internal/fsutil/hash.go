package fsutil

import (
	"fmt"
	"path/filepath"
)

// hashSeed is the arbitrary seed the original sandbox used for its
// one-byte-at-a-time Murmur mix; kept identical so hashed names are stable
// across ports rather than just internally consistent.
const hashSeed uint32 = 0x5f3759df

// stringHash is a byte-at-a-time Murmur-style mix, ported directly from
// userns_common.c's string_hash (itself lifted from smhasher).
func stringHash(s string) uint32 {
	h := hashSeed
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 0x5bd1e995
		h ^= h >> 15
	}
	return h
}

// HashedBasename returns "<leaf>-<hex>", where <hex> is a hash of the full
// path. Two mount points with the same leaf name (e.g. "/a/data" and
// "/b/data") hash to different suffixes because the hash runs over the
// whole path, giving each its own collision-free upper/work directory
// pair under a shared persist root.
func HashedBasename(path string) string {
	return fmt.Sprintf("%s-%x", filepath.Base(path), stringHash(path))
}
