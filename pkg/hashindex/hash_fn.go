package hashindex

import "hash/fnv"

// HashFunction maps a key to a 64-bit hash. The table reduces the result mod
// the current bucket capacity itself; implementations need not worry about
// range.
type HashFunction[K any] func(key K) uint64

// KeyComparator orders two keys: negative if a < b, zero if equal, positive
// if a > b. GetValue and Remove only need the zero case, but ordering is
// part of the contract so the same comparator can later back an ordered
// traversal if one is ever added.
type KeyComparator[K any] func(a, b K) int

// FNVHash builds a HashFunction for any key type from its Codec: it encodes
// the key into its fixed-width byte form and runs a 64-bit FNV-1a over
// those bytes. This is the default hash for every codec in this package —
// the table never needs a bespoke hash per key type as long as the key has
// a Codec.
func FNVHash[K any](codec Codec[K]) HashFunction[K] {
	size := codec.Size()
	return func(key K) uint64 {
		buf := make([]byte, size)
		codec.Encode(buf, key)
		h := fnv.New64a()
		h.Write(buf)
		return h.Sum64()
	}
}
