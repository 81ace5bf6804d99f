package seqscan

import (
	"testing"
	"time"

	"github.com/banshee-data/seqscan/internal/geom"
)

func testPoint(id int, x, y float64, sec int64) *Point {
	g := geom.Point{X: x, Y: y}
	return newPoint(id, g, g, ts(sec))
}

func TestWalkFreshRegionIsItsOwnRepresentative(t *testing.T) {
	c := newScanContext(time.Minute)
	p := testPoint(0, 0, 0, 0)
	r := newLeafRegion(c, p, time.Time{})

	if r.walk() != r {
		t.Error("fresh region must be its own representative")
	}
	if _, ok := c.log()[r]; !ok {
		t.Error("new region must register in the current phase log")
	}
}

func TestExpandUpdatesTimeBoxAndPersistence(t *testing.T) {
	c := newScanContext(15 * time.Second)
	p0 := testPoint(0, 0, 0, 0)
	r := newLeafRegion(c, p0, time.Time{})

	r.expand(c, p0)
	r.expand(c, testPoint(1, 2, 3, 10))
	if r.Persistent() {
		t.Error("10s presence must not reach a 15s threshold")
	}

	r.expand(c, testPoint(2, -1, 0, 20))
	if !r.Persistent() {
		t.Error("20s presence must latch persistence")
	}
	if r.box.XMin != -1 || r.box.XMax != 2 || r.box.YMin != 0 || r.box.YMax != 3 {
		t.Errorf("unexpected bounding box %+v", r.box)
	}
	if r.Presence() != 20*time.Second {
		t.Errorf("presence = %v, want 20s", r.Presence())
	}
}

func TestExpandRemovesPointFromPhaseNoise(t *testing.T) {
	c := newScanContext(time.Minute)
	p0 := testPoint(0, 0, 0, 0)
	p1 := testPoint(1, 0, 0, 10)
	c.noise()[p1] = struct{}{}

	r := newLeafRegion(c, p0, time.Time{})
	r.expand(c, p1)

	if _, ok := c.noise()[p1]; ok {
		t.Error("expanded point must leave the phase noise set")
	}
}

func TestMergeSingleRepresentativeAllocatesNothing(t *testing.T) {
	c := newScanContext(time.Minute)
	p := testPoint(0, 0, 0, 0)
	r := newLeafRegion(c, p, time.Time{})
	r.expand(c, p)

	got := mergeRegions(c, map[*Region]struct{}{r: {}}, p)
	if got != r {
		t.Error("merging a singleton set must return the sole representative")
	}
}

func TestMergeCreatesNodeAndForwardsPointers(t *testing.T) {
	c := newScanContext(time.Minute)
	start := time.Time{}

	pa := testPoint(0, 0, 0, 0)
	ra := newLeafRegion(c, pa, start)
	ra.expand(c, pa)

	pb := testPoint(2, 5, 0, 20)
	rb := newLeafRegion(c, pb, start)
	rb.expand(c, pb)

	common := testPoint(1, 2, 0, 10)
	merged := mergeRegions(c, map[*Region]struct{}{ra: {}, rb: {}}, common)

	if merged == ra || merged == rb {
		t.Fatal("merge of two representatives must allocate a node")
	}
	if merged.Level() != 1 {
		t.Errorf("level = %d, want 1", merged.Level())
	}
	if ra.walk() != merged || rb.walk() != merged {
		t.Error("operands must forward to the merge result")
	}
	if !merged.contains(pa) || !merged.contains(pb) || !merged.contains(common) {
		t.Error("merge result must own all operand points plus the common point")
	}
	if _, ok := c.log()[ra]; ok {
		t.Error("merged operand must leave the phase log")
	}
	if _, ok := c.log()[merged]; !ok {
		t.Error("merge result must join the phase log")
	}
	if len(merged.children) != 2 {
		t.Errorf("expected 2 children, got %d", len(merged.children))
	}
}

func TestMergePersistencePropagates(t *testing.T) {
	c := newScanContext(15 * time.Second)
	start := time.Time{}

	pa0 := testPoint(0, 0, 0, 0)
	ra := newLeafRegion(c, pa0, start)
	ra.expand(c, pa0)
	ra.expand(c, testPoint(1, 0, 0, 20)) // 20s presence: persistent

	pb := testPoint(3, 5, 0, 40)
	rb := newLeafRegion(c, pb, start)
	rb.expand(c, pb)

	merged := mergeRegions(c, map[*Region]struct{}{ra: {}, rb: {}}, testPoint(2, 2, 0, 30))
	if !merged.Persistent() {
		t.Error("a merge with a persistent operand must be persistent")
	}
}

func TestQueryDescendsIntersectingChildrenOnly(t *testing.T) {
	c := newScanContext(time.Minute)
	start := time.Time{}

	pa := testPoint(0, 0, 0, 0)
	ra := newLeafRegion(c, pa, start)
	ra.expand(c, pa)

	pb := testPoint(2, 100, 0, 20)
	rb := newLeafRegion(c, pb, start)
	rb.expand(c, pb)

	merged := mergeRegions(c, map[*Region]struct{}{ra: {}, rb: {}}, testPoint(1, 50, 0, 10))

	result := make(map[*Point]struct{})
	square := geom.Rect{XMin: -1, YMin: -1, XMax: 1, YMax: 1}
	merged.query(square, result)

	if _, ok := result[pa]; !ok {
		t.Error("query must find the point inside the square")
	}
	if _, ok := result[pb]; ok {
		t.Error("query must not return points outside the square")
	}
}

func TestQueryMissesDisjointBox(t *testing.T) {
	c := newScanContext(time.Minute)
	p := testPoint(0, 0, 0, 0)
	r := newLeafRegion(c, p, time.Time{})
	r.expand(c, p)

	result := make(map[*Point]struct{})
	r.query(geom.Rect{XMin: 10, YMin: 10, XMax: 20, YMax: 20}, result)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d points", len(result))
	}
}

func TestRegionTimestamps(t *testing.T) {
	c := newScanContext(time.Minute)
	p0 := testPoint(0, 0, 0, 0)
	r := newLeafRegion(c, p0, time.Time{})
	r.expand(c, p0)
	r.expand(c, testPoint(1, 0, 0, 40))

	if !r.FirstTimestamp().Equal(ts(0)) {
		t.Errorf("first = %s, want t0", r.FirstTimestamp())
	}
	if !r.LastTimestamp().Equal(ts(40)) {
		t.Errorf("last = %s, want t40", r.LastTimestamp())
	}
	if !r.MeanTimestamp().Equal(ts(20)) {
		t.Errorf("mean = %s, want t20", r.MeanTimestamp())
	}
}
