package values

// IdentityHash returns the identity hash used as a hash-key: the raw
// 64-bit word. For a heap object that word is its heap reference, so
// two distinct heap objects that compare == under Ruby semantics (e.g.
// two equal strings) get different hashes; no structural hashing of
// heap content exists.
func IdentityHash(v Value) uint64 {
	return uint64(v)
}
