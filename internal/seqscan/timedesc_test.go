package seqscan

import (
	"testing"
	"time"
)

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func mustRange(t *testing.T, startID int, tStart int64, stopID int, tStop int64) SimpleRange {
	t.Helper()
	r, err := NewSimpleRange(startID, ts(tStart), stopID, ts(tStop))
	if err != nil {
		t.Fatalf("NewSimpleRange: %v", err)
	}
	return r
}

func TestNewSimpleRangeErrors(t *testing.T) {
	if _, err := NewSimpleRange(5, ts(0), 3, ts(10)); err == nil {
		t.Error("expected error for inverted ids")
	}
	if _, err := NewSimpleRange(0, ts(10), 1, ts(0)); err == nil {
		t.Error("expected error for inverted timestamps")
	}
}

func TestPointRange(t *testing.T) {
	r := PointRange(7, ts(100))
	if r.StartID != 7 || r.StopID != 7 {
		t.Errorf("expected degenerate ids, got %d..%d", r.StartID, r.StopID)
	}
	if r.Duration() != 0 {
		t.Errorf("expected zero duration, got %v", r.Duration())
	}
}

func TestSimpleRangeDisjoint(t *testing.T) {
	a := mustRange(t, 0, 0, 2, 20)
	meets := mustRange(t, 3, 30, 5, 50)   // ids meet: 2+1 == 3
	overlap := mustRange(t, 1, 10, 4, 40) // id overlap
	apart := mustRange(t, 4, 40, 6, 60)   // gap of 2 in ids

	if a.Disjoint(meets) || meets.Disjoint(a) {
		t.Error("id-adjacent ranges must not be disjoint")
	}
	if a.Disjoint(overlap) {
		t.Error("overlapping ranges must not be disjoint")
	}
	if !a.Disjoint(apart) || !apart.Disjoint(a) {
		t.Error("ranges with an id gap > 1 must be disjoint")
	}
}

func TestSimpleRangeAdd(t *testing.T) {
	a := mustRange(t, 0, 0, 2, 20)
	b := mustRange(t, 3, 30, 5, 50)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.StartID != 0 || sum.StopID != 5 {
		t.Errorf("expected ids 0..5, got %d..%d", sum.StartID, sum.StopID)
	}
	if !sum.TStart.Equal(ts(0)) || !sum.TStop.Equal(ts(50)) {
		t.Errorf("unexpected bounds %s..%s", sum.TStart, sum.TStop)
	}

	// Commutative.
	rev, err := b.Add(a)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rev != sum {
		t.Errorf("addition not commutative: %v vs %v", rev, sum)
	}

	// Disjoint operands error out.
	far := mustRange(t, 10, 100, 12, 120)
	if _, err := a.Add(far); err == nil {
		t.Error("expected error adding disjoint ranges")
	}
}

func TestSimpleRangeAddAssociative(t *testing.T) {
	a := mustRange(t, 0, 0, 1, 10)
	b := mustRange(t, 2, 20, 3, 30)
	c := mustRange(t, 4, 40, 5, 50)

	ab, _ := a.Add(b)
	left, _ := ab.Add(c)
	bc, _ := b.Add(c)
	right, _ := a.Add(bc)
	if left != right {
		t.Errorf("addition not associative: %v vs %v", left, right)
	}
}

func TestTimeDescriptorUnionCoalesces(t *testing.T) {
	var d TimeDescriptor
	d.AddRange(PointRange(0, ts(0)))
	d.AddRange(PointRange(1, ts(10)))
	d.AddRange(PointRange(2, ts(20)))

	if d.Len() != 1 {
		t.Fatalf("adjacent ids must coalesce into one segment, got %d", d.Len())
	}
	if d.Presence() != 20*time.Second {
		t.Errorf("presence = %v, want 20s", d.Presence())
	}
	if d.Duration() != 20*time.Second {
		t.Errorf("duration = %v, want 20s", d.Duration())
	}
}

func TestTimeDescriptorGap(t *testing.T) {
	var d TimeDescriptor
	d.AddRange(PointRange(0, ts(0)))
	d.AddRange(PointRange(1, ts(10)))
	d.AddRange(PointRange(4, ts(40))) // id gap: 1+1 < 4
	d.AddRange(PointRange(5, ts(50)))

	if d.Len() != 2 {
		t.Fatalf("expected 2 segments, got %d", d.Len())
	}
	if d.Presence() != 20*time.Second {
		t.Errorf("presence = %v, want 20s (10+10)", d.Presence())
	}
	if d.Duration() != 50*time.Second {
		t.Errorf("duration = %v, want 50s", d.Duration())
	}
	if !d.First().Equal(ts(0)) || !d.Last().Equal(ts(50)) {
		t.Errorf("unexpected bounds %s..%s", d.First(), d.Last())
	}
}

func TestTimeDescriptorUnionCommutative(t *testing.T) {
	var a TimeDescriptor
	a.AddRange(mustRange(t, 0, 0, 2, 20))
	a.AddRange(mustRange(t, 6, 60, 7, 70))

	var b TimeDescriptor
	b.AddRange(mustRange(t, 3, 30, 4, 40))
	b.AddRange(mustRange(t, 9, 90, 10, 100))

	ab := Union(a, b)
	ba := Union(b, a)

	if ab.Len() != ba.Len() {
		t.Fatalf("union not commutative: %d vs %d segments", ab.Len(), ba.Len())
	}
	for i := range ab.Segments() {
		if ab.Segments()[i] != ba.Segments()[i] {
			t.Errorf("segment %d differs: %v vs %v", i, ab.Segments()[i], ba.Segments()[i])
		}
	}

	// 0..2 meets 3..4 -> one segment; 6..7 and 9..10 stay apart.
	if ab.Len() != 3 {
		t.Errorf("expected 3 segments, got %d", ab.Len())
	}
}

func TestTimeDescriptorInvariants(t *testing.T) {
	var d TimeDescriptor
	for _, id := range []int{0, 4, 1, 9, 5, 2} {
		d.AddRange(PointRange(id, ts(int64(id*10))))
	}

	segs := d.Segments()
	for i := 1; i < len(segs); i++ {
		if segs[i-1].StopID+1 >= segs[i].StartID {
			t.Errorf("segments %d and %d not id-disjoint: %v %v", i-1, i, segs[i-1], segs[i])
		}
		if segs[i-1].StartID > segs[i].StartID {
			t.Errorf("segments out of order at %d", i)
		}
	}
	if d.Presence() > d.Duration() {
		t.Errorf("presence %v exceeds duration %v", d.Presence(), d.Duration())
	}
}

func TestTimeDescriptorEmpty(t *testing.T) {
	var d TimeDescriptor
	if d.Presence() != 0 || d.Duration() != 0 {
		t.Error("empty descriptor must have zero presence and duration")
	}

	other := NewTimeDescriptor(PointRange(3, ts(30)))
	u := Union(d, other)
	if u.Len() != 1 {
		t.Errorf("union with empty must keep the other side, got %d segments", u.Len())
	}
}
