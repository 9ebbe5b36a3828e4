package rzip

import "math/bits"

const (
	// Ways is the number of entries per bucket.
	Ways = 4
	// EntrySize is the resident size of one index entry.
	EntrySize = 12

	emptySlot = -1
)

// EvictionPolicy picks the entry to overwrite when a bucket is full of live
// entries.
type EvictionPolicy interface {
	// Victim returns the way to replace, given the stream offsets of a full
	// bucket.
	Victim(offsets []int64) int
}

// OldestWins replaces the entry with the smallest offset, so the index keeps
// the most recent occurrences.
type OldestWins struct{}

func (OldestWins) Victim(offsets []int64) int {
	victim := 0
	for i, off := range offsets {
		if off < offsets[victim] {
			victim = i
		}
	}

	return victim
}

// Index maps sampled fingerprints to the stream offsets of the 32-byte strings
// they were computed from. It is a set-associative table: a fingerprint selects
// one bucket of Ways entries by its high bits, and the full fingerprint is kept
// as a tag to reject most false candidates before byte verification.
type Index struct {
	tags      []uint32
	offs      []int64
	shift     uint
	policy    EvictionPolicy
	evictions int64
}

// NewIndex creates an index with room for entries entries, rounded down to a
// power of two and at least one bucket. A nil policy means OldestWins.
func NewIndex(entries int64, policy EvictionPolicy) *Index {
	if policy == nil {
		policy = OldestWins{}
	}

	buckets := max(entries/Ways, 1)
	bucketBits := 63 - bits.LeadingZeros64(uint64(buckets)) //nolint:gosec // positive
	n := (1 << bucketBits) * Ways

	idx := &Index{
		tags:   make([]uint32, n),
		offs:   make([]int64, n),
		shift:  uint(32 - bucketBits), //nolint:gosec // bucketBits < 32 in practice
		policy: policy,
	}
	for i := range idx.offs {
		idx.offs[i] = emptySlot
	}

	return idx
}

// Len returns the number of entries the index can hold.
func (idx *Index) Len() int {
	return len(idx.offs)
}

// Evictions returns how many live entries were replaced by Insert.
func (idx *Index) Evictions() int64 {
	return idx.evictions
}

func (idx *Index) bucket(fp uint32) int {
	if idx.shift >= 32 {
		return 0
	}

	return int(fp>>idx.shift) * Ways
}

// Lookup appends the offsets recorded under fp to dst, nearest (largest
// offset) first.
func (idx *Index) Lookup(dst []int64, fp uint32) []int64 {
	b := idx.bucket(fp)
	start := len(dst)

	for i := b; i < b+Ways; i++ {
		if idx.offs[i] == emptySlot || idx.tags[i] != fp {
			continue
		}

		// insertion sort, at most Ways elements
		off := idx.offs[i]
		j := len(dst)
		dst = append(dst, off)
		for j > start && dst[j-1] < off {
			dst[j] = dst[j-1]
			j--
		}
		dst[j] = off
	}

	return dst
}

// Insert records off under fp. Entries older than horizon are dead and are
// reused before the eviction policy is consulted.
func (idx *Index) Insert(fp uint32, off, horizon int64) {
	b := idx.bucket(fp)
	slots := idx.offs[b : b+Ways]

	way := -1
	for i, o := range slots {
		if o == emptySlot || o < horizon {
			way = i
			break
		}
	}
	if way < 0 {
		way = idx.policy.Victim(slots)
		idx.evictions++
	}

	idx.tags[b+way] = fp
	slots[way] = off
}
