package seqscan

import (
	"fmt"
	"time"
)

// SimpleRange is the interval between two observation events, each denoted
// by its scan-order id and timestamp. Ids decide whether two ranges can be
// merged (consecutive events meet); timestamps measure their length.
type SimpleRange struct {
	StartID int
	TStart  time.Time
	StopID  int
	TStop   time.Time
}

// NewSimpleRange builds a range between two events. Returns an error when
// the stop event precedes the start event in either id or time order.
func NewSimpleRange(startID int, tStart time.Time, stopID int, tStop time.Time) (SimpleRange, error) {
	if startID > stopID {
		return SimpleRange{}, fmt.Errorf("start id %d follows stop id %d", startID, stopID)
	}
	if tStart.After(tStop) {
		return SimpleRange{}, fmt.Errorf("start timestamp %s follows stop timestamp %s", tStart, tStop)
	}
	return SimpleRange{StartID: startID, TStart: tStart, StopID: stopID, TStop: tStop}, nil
}

// PointRange builds the single-event range where stop equals start.
func PointRange(id int, t time.Time) SimpleRange {
	return SimpleRange{StartID: id, TStart: t, StopID: id, TStop: t}
}

// Duration returns the temporal length of the range.
func (r SimpleRange) Duration() time.Duration {
	return r.TStop.Sub(r.TStart)
}

// Disjoint reports whether the two ranges neither overlap nor meet.
// Ranges over consecutive ids meet: [a, i] meets [i+1, b].
func (r SimpleRange) Disjoint(other SimpleRange) bool {
	return r.StopID+1 < other.StartID || other.StopID+1 < r.StartID
}

// Add merges two non-disjoint ranges into their convex hull. Returns an
// error when the ranges are disjoint.
func (r SimpleRange) Add(other SimpleRange) (SimpleRange, error) {
	if r.Disjoint(other) {
		return SimpleRange{}, fmt.Errorf("ranges %v and %v are disjoint", r, other)
	}
	out := r
	if other.StartID < out.StartID {
		out.StartID = other.StartID
	}
	if other.TStart.Before(out.TStart) {
		out.TStart = other.TStart
	}
	if other.StopID > out.StopID {
		out.StopID = other.StopID
	}
	if other.TStop.After(out.TStop) {
		out.TStop = other.TStop
	}
	return out, nil
}

// Contains reports whether the event id falls inside the range.
func (r SimpleRange) Contains(id int) bool {
	return r.StartID <= id && id <= r.StopID
}

func (r SimpleRange) String() string {
	return fmt.Sprintf("(%d, %s, %d, %s)", r.StartID, r.TStart, r.StopID, r.TStop)
}

// TimeDescriptor is an id-sorted list of pairwise disjoint SimpleRanges
// describing when a region was visited. Consecutive segments are separated
// by an id gap of at least two.
type TimeDescriptor struct {
	segments []SimpleRange
}

// NewTimeDescriptor returns a descriptor holding the given range.
func NewTimeDescriptor(r SimpleRange) TimeDescriptor {
	return TimeDescriptor{segments: []SimpleRange{r}}
}

// Len returns the number of disjoint segments.
func (d TimeDescriptor) Len() int {
	return len(d.segments)
}

// Segments returns the underlying segments. The slice must not be mutated.
func (d TimeDescriptor) Segments() []SimpleRange {
	return d.segments
}

// Union merges two descriptors into a new one, coalescing id-adjacent or
// overlapping segments. Union is commutative.
func Union(a, b TimeDescriptor) TimeDescriptor {
	if len(a.segments) == 0 {
		return TimeDescriptor{segments: append([]SimpleRange(nil), b.segments...)}
	}
	if len(b.segments) == 0 {
		return TimeDescriptor{segments: append([]SimpleRange(nil), a.segments...)}
	}

	// Merging walk over two id-sorted lists.
	out := make([]SimpleRange, 0, len(a.segments)+len(b.segments))
	i, j := 0, 0
	for i < len(a.segments) || j < len(b.segments) {
		var next SimpleRange
		switch {
		case i == len(a.segments):
			next = b.segments[j]
			j++
		case j == len(b.segments):
			next = a.segments[i]
			i++
		case a.segments[i].StartID <= b.segments[j].StartID:
			next = a.segments[i]
			i++
		default:
			next = b.segments[j]
			j++
		}

		if n := len(out); n > 0 && !out[n-1].Disjoint(next) {
			merged, err := out[n-1].Add(next)
			if err != nil {
				// Non-disjoint ranges always add; kept for completeness.
				panic(err)
			}
			out[n-1] = merged
		} else {
			out = append(out, next)
		}
	}
	return TimeDescriptor{segments: out}
}

// Add unions d with other in place.
func (d *TimeDescriptor) Add(other TimeDescriptor) {
	*d = Union(*d, other)
}

// AddRange unions a single range into the descriptor.
func (d *TimeDescriptor) AddRange(r SimpleRange) {
	*d = Union(*d, NewTimeDescriptor(r))
}

// Presence returns the sum of segment durations: the time actually spent
// inside the region.
func (d TimeDescriptor) Presence() time.Duration {
	var total time.Duration
	for _, s := range d.segments {
		total += s.Duration()
	}
	return total
}

// Duration returns the span from the first to the last timestamp.
func (d TimeDescriptor) Duration() time.Duration {
	if len(d.segments) == 0 {
		return 0
	}
	return d.segments[len(d.segments)-1].TStop.Sub(d.segments[0].TStart)
}

// First returns the first timestamp of the descriptor. The descriptor must
// not be empty.
func (d TimeDescriptor) First() time.Time {
	return d.segments[0].TStart
}

// Last returns the last timestamp of the descriptor. The descriptor must
// not be empty.
func (d TimeDescriptor) Last() time.Time {
	return d.segments[len(d.segments)-1].TStop
}
