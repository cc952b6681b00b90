// Package scheduler holds the appointment conflict engine.
package scheduler

import "time"

// Slot is the part of an appointment the conflict engine reasons about.
type Slot struct {
	ID        int64
	OwnerID   int64
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// Candidate describes a proposed time range for an owner. ExcludeID skips the
// appointment being edited; zero means nothing is excluded.
type Candidate struct {
	OwnerID   int64
	Start     time.Time
	End       time.Time
	ExcludeID int64
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Blocks reports whether an existing slot blocks the candidate range.
func Blocks(existing Slot, candidate Candidate) bool {
	if existing.Cancelled {
		return false
	}
	if existing.OwnerID != candidate.OwnerID {
		return false
	}
	if candidate.ExcludeID != 0 && existing.ID == candidate.ExcludeID {
		return false
	}
	return Overlaps(existing.Start, existing.End, candidate.Start, candidate.End)
}

// DetectConflicts returns every existing slot that blocks the candidate, in
// input order.
func DetectConflicts(existing []Slot, candidate Candidate) []Slot {
	var conflicts []Slot
	for _, slot := range existing {
		if Blocks(slot, candidate) {
			conflicts = append(conflicts, slot)
		}
	}
	return conflicts
}

// HasConflict reports whether any existing slot blocks the candidate.
func HasConflict(existing []Slot, candidate Candidate) bool {
	for _, slot := range existing {
		if Blocks(slot, candidate) {
			return true
		}
	}
	return false
}
