package rzip

// MinMatch is the fingerprint width and the shortest match the matcher emits.
const MinMatch = 32

// gear maps each byte to a pseudo-random word. With a one-bit shift per byte,
// a byte stops affecting the 32-bit hash exactly MinMatch bytes later.
var gear = func() (t [256]uint32) {
	// splitmix64
	var s uint64 = 0x9e3779b97f4a7c15
	for i := range t {
		s += 0x9e3779b97f4a7c15
		z := s
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		t[i] = uint32(z >> 32)
	}

	return t
}()

func roll(h uint32, b byte) uint32 {
	return h<<1 + gear[b]
}

// mix is the murmur3 finalizer. Gear sums are weak in their low bits; the
// mixed value is used both for sampling and for bucket selection.
func mix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

// sampleBits returns how many low fingerprint bits must be zero for a position
// to enter the index: every position at level 9, one in 16 at level 1.
func sampleBits(level int) uint {
	level = min(max(level, 1), 9)
	return uint(9-level) / 2 //nolint:gosec // non-negative
}
