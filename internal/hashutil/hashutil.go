// Package hashutil provides the deterministic numeric UID derivation
// the Token Broker needs to bind a RTC/pub-sub identity to a stable
// 32-bit number, since the external realtime services address
// participants by numeric UID rather than by opaque string id.
package hashutil

import "hash/fnv"

// UID32 returns the 32-bit FNV-1a hash of id with its top (sign) bit
// cleared, a stable, collision-rare non-negative numeric UID for a user
// identifier. Hashing is a one-line stdlib
// operation; no example in the reference set reaches for a third-party
// hashing library for this.
func UID32(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum32()
	// Clear the sign bit so the value always prints as a positive
	// 32-bit integer when treated as int32 by collaborators that model
	// UID as a signed type.
	return sum &^ (1 << 31)
}
