// Package topk implements the engine's bounded ordered result buffer:
// a sorted array with shift-on-insert rather than a heap. For the
// small k values this engine deals with, an O(k) shift-insert is
// simpler and at least as fast as heap bookkeeping, and it keeps
// entries available in sorted order without a separate drain step.
package topk

import "math"

// Entry is one (id, distance) pair held in a Register.
type Entry struct {
	ID       int32
	Distance float32
}

// Register holds the k smallest-distance entries offered to it, kept
// sorted ascending by distance. On a tie, an already-held entry keeps
// its slot ahead of a later offer of equal distance — ties are
// resolved in scan/insertion order, which for every call site in this
// engine means ascending id, since rows are always scanned
// id-ascending.
type Register struct {
	entries []Entry
	worst   float32
}

// New creates a Register of capacity k, seeded with k sentinel entries
// of id -1 and distance +Inf. +Inf keeps the register correct
// regardless of whether the candidate vectors are L2-normalized,
// rather than a fixed sentinel distance that only works for a bounded
// input range.
func New(k int) *Register {
	entries := make([]Entry, k)
	for i := range entries {
		entries[i] = Entry{ID: -1, Distance: float32(math.Inf(1))}
	}
	worst := float32(math.Inf(1))
	if k == 0 {
		worst = float32(math.Inf(-1))
	}
	return &Register{entries: entries, worst: worst}
}

// Offer inserts (id, distance) if distance is strictly better than the
// current worst kept entry. A distance equal to the current worst is
// rejected; a distance equal to some interior entry's distance is
// inserted after it, per the Register doc comment.
func (r *Register) Offer(id int32, distance float32) {
	k := len(r.entries)
	if k == 0 || distance >= r.worst {
		return
	}
	// Find the lowest index i such that entries[i].Distance > distance;
	// everything from i onward shifts down by one slot. Using strict
	// '>' (not '>=') leaves entries already tied with distance ahead
	// of the new one, preserving insertion order on ties.
	i := k - 1
	for i >= 0 && r.entries[i].Distance > distance {
		i--
	}
	i++
	for j := k - 2; j >= i; j-- {
		r.entries[j+1] = r.entries[j]
	}
	r.entries[i] = Entry{ID: id, Distance: distance}
	r.worst = r.entries[k-1].Distance
}

// Worst returns the current worst (largest) kept distance.
func (r *Register) Worst() float32 {
	return r.worst
}

// Entries returns the register's contents in ascending distance order.
// The slice is owned by the caller; the register is not reused after
// this call within a single query's lifetime.
func (r *Register) Entries() []Entry {
	return r.entries
}

// Len returns k, the register's capacity.
func (r *Register) Len() int {
	return len(r.entries)
}
