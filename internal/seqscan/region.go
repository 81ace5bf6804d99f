package seqscan

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/seqscan/internal/geom"
)

// scanPhase tells which half of the state machine produced a region or a
// candidate noise point.
type scanPhase int

const (
	phaseExpansion scanPhase = iota // growing the active cluster
	phaseLookUp                     // searching for the next cluster
)

// scanContext holds the per-trajectory scan state: the persistence
// threshold, the current phase and the phase-scoped region logs and noise
// sets. Keeping this state per trajectory lets independent trajectories
// run in parallel workers without shared mutable state.
type scanContext struct {
	threshold time.Duration
	phase     scanPhase

	regionCounter int

	expansionLog   map[*Region]struct{}
	lookUpLog      map[*Region]struct{}
	expansionNoise map[*Point]struct{}
	lookUpNoise    map[*Point]struct{}
}

func newScanContext(threshold time.Duration) *scanContext {
	return &scanContext{
		threshold:      threshold,
		phase:          phaseExpansion,
		expansionLog:   make(map[*Region]struct{}),
		lookUpLog:      make(map[*Region]struct{}),
		expansionNoise: make(map[*Point]struct{}),
		lookUpNoise:    make(map[*Point]struct{}),
	}
}

// log returns the region log of the current phase.
func (c *scanContext) log() map[*Region]struct{} {
	if c.phase == phaseExpansion {
		return c.expansionLog
	}
	return c.lookUpLog
}

// noise returns the noise set of the current phase.
func (c *scanContext) noise() map[*Point]struct{} {
	if c.phase == phaseExpansion {
		return c.expansionNoise
	}
	return c.lookUpNoise
}

// CorruptionError reports a violated internal invariant of the region
// forest or the scan state machine. It indicates a bug, not bad input.
type CorruptionError struct {
	msg string
}

func (e *CorruptionError) Error() string {
	return "state corruption: " + e.msg
}

// corrupt aborts the scan with a CorruptionError. The scanner recovers it
// at its boundary and converts it into an error return.
func corrupt(format string, args ...any) {
	panic(&CorruptionError{msg: fmt.Sprintf(format, args...)})
}

// Region is a node of the region forest. Leaf regions are created when a
// point first becomes dense; merge nodes join live regions around a common
// newly-dense point. hook and next form the union-find forward pointers:
// both point at the region itself while it is a representative.
type Region struct {
	id    int
	level int

	next *Region // representative after a merge, self otherwise
	hook *Region // shortcut toward the representative

	time         TimeDescriptor
	startContext time.Time
	points       map[*Point]struct{}
	box          geom.Rect

	noiseCount int
	persistent bool

	creationTime     time.Time
	creationPresence time.Duration

	// Merge-node state; nil for leaves.
	morePoints map[*Point]struct{} // points added after the merge
	children   []*Region           // immediate merge operands
}

// newRegion initialises the shared part of a region around its first point
// and registers it in the current phase log, removing the point from the
// phase noise set.
func newRegion(c *scanContext, p *Point) *Region {
	r := &Region{
		id:     c.regionCounter,
		points: map[*Point]struct{}{p: {}},
		box:    geom.RectAround(p.geometry),
	}
	r.next = r
	r.hook = r
	c.regionCounter++

	c.log()[r] = struct{}{}
	delete(c.noise(), p)
	return r
}

// newLeafRegion creates a level-0 region owned by a newly dense point.
func newLeafRegion(c *scanContext, p *Point, startContext time.Time) *Region {
	r := newRegion(c, p)
	r.startContext = startContext
	return r
}

// newNodeRegion creates a merge node owned by the common point of the
// merged operands.
func newNodeRegion(c *scanContext, p *Point) *Region {
	r := newRegion(c, p)
	r.morePoints = map[*Point]struct{}{p: {}}
	r.children = make([]*Region, 0, 2)
	return r
}

// isNode reports whether the region is a merge node.
func (r *Region) isNode() bool {
	return r.morePoints != nil
}

// walk returns the representative this region has been merged into,
// following hook pointers to their fixed point. At the fixed point next
// must equal the region itself; anything else means the forest is corrupt.
func (r *Region) walk() *Region {
	for r != r.hook {
		r = r.hook
	}
	if r != r.next {
		corrupt("region %d: next %d differs from representative at end of walk", r.id, r.next.id)
	}
	return r
}

// contains reports membership of a point, via the cached point set rather
// than a time descriptor scan.
func (r *Region) contains(p *Point) bool {
	_, ok := r.points[p]
	return ok
}

// expand adds a point to the region: its event range joins the time
// descriptor, persistence is re-evaluated, the point leaves the phase
// noise set and the bounding box stretches to cover it.
func (r *Region) expand(c *scanContext, p *Point) {
	r.time.AddRange(PointRange(p.id, p.time))
	if r.time.Presence() >= c.threshold {
		r.persistent = true
	}

	r.points[p] = struct{}{}
	if r.morePoints != nil {
		r.morePoints[p] = struct{}{}
	}

	delete(c.noise(), p)
	r.box.CombineExtentWith(p.geometry.X, p.geometry.Y)
}

// query adds to result every owned point lying inside the square,
// descending into children whose boxes intersect it. Uses an explicit
// stack to bound call depth on tall merge trees.
func (r *Region) query(square geom.Rect, result map[*Point]struct{}) {
	if !r.box.Intersects(square) {
		return
	}

	stack := []*Region{r}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !cur.isNode() {
			for p := range cur.points {
				if square.ContainsPoint(p.geometry) {
					result[p] = struct{}{}
				}
			}
			continue
		}

		for p := range cur.morePoints {
			if square.ContainsPoint(p.geometry) {
				result[p] = struct{}{}
			}
		}
		for _, child := range cur.children {
			if child.box.Intersects(square) {
				stack = append(stack, child)
			}
		}
	}
}

// mergeRegions joins all the regions in the set around their common point.
// With a single representative in the set no allocation happens and that
// representative is returned. Otherwise a new merge node absorbs every
// representative: time descriptors union, point sets and boxes combine,
// operands leave the phase log and forward their pointers to the node.
func mergeRegions(c *scanContext, regions map[*Region]struct{}, p *Point) *Region {
	if len(regions) == 0 {
		corrupt("merging an empty set of regions")
	}

	finals := make(map[*Region]struct{}, len(regions))
	for r := range regions {
		finals[r.walk()] = struct{}{}
	}

	if len(finals) == 1 {
		for r := range finals {
			return r
		}
	}

	// Deterministic operand order keeps level/start-context assignment and
	// the time descriptor build reproducible across runs.
	ordered := make([]*Region, 0, len(finals))
	for r := range finals {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	result := newNodeRegion(c, p)
	maxLevel := 0
	anyPersistent := false
	for _, r := range ordered {
		result.time.Add(r.time)
		for pt := range r.points {
			result.points[pt] = struct{}{}
		}
		result.box.CombineExtentWithRect(r.box)
		result.children = append(result.children, r)
		r.next = result
		delete(c.log(), r)

		if r.level > maxLevel {
			maxLevel = r.level
		}
		if r.persistent {
			anyPersistent = true
		}
	}

	for r := range regions {
		r.hook = result
	}
	for _, r := range ordered {
		r.hook = result
	}

	result.level = 1 + maxLevel
	result.persistent = anyPersistent || result.time.Presence() >= c.threshold
	result.startContext = ordered[0].startContext

	return result
}

// Presence returns the total time spent inside the region.
func (r *Region) Presence() time.Duration {
	return r.time.Presence()
}

// Duration returns the span between the first and last visit.
func (r *Region) Duration() time.Duration {
	return r.time.Duration()
}

// Ratio returns presence over duration.
func (r *Region) Ratio() float64 {
	d := r.Duration()
	if d == 0 {
		return 0
	}
	return float64(r.Presence()) / float64(d)
}

// Persistent returns the latched persistence flag.
func (r *Region) Persistent() bool {
	return r.persistent
}

// FirstTimestamp returns the first visit timestamp.
func (r *Region) FirstTimestamp() time.Time {
	return r.time.First()
}

// LastTimestamp returns the last visit timestamp.
func (r *Region) LastTimestamp() time.Time {
	return r.time.Last()
}

// MeanTimestamp returns the midpoint between first and last visit.
func (r *Region) MeanTimestamp() time.Time {
	f := r.time.First()
	return f.Add(r.time.Last().Sub(f) / 2)
}

// NoiseCount returns the number of excursion points charged to the region.
func (r *Region) NoiseCount() int {
	return r.noiseCount
}

// ID returns the region id, unique within a trajectory scan.
func (r *Region) ID() int {
	return r.id
}

// Level returns the merge depth: leaves are 0, a merge result is one more
// than its deepest child.
func (r *Region) Level() int {
	return r.level
}

// Size returns the number of member points.
func (r *Region) Size() int {
	return len(r.points)
}

// Points returns the member points in scan order.
func (r *Region) Points() []*Point {
	out := make([]*Point, 0, len(r.points))
	for p := range r.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Centroid returns the arithmetic mean of the member point coordinates,
// in input coordinates.
func (r *Region) Centroid() (x, y float64) {
	if len(r.points) == 0 {
		return 0, 0
	}
	for p := range r.points {
		x += p.world.X
		y += p.world.Y
	}
	n := float64(len(r.points))
	return x / n, y / n
}

// inTimeFrame reports whether the region's first visit falls after the
// given frame start.
func (r *Region) inTimeFrame(start time.Time) bool {
	if r.time.Len() == 0 {
		return false
	}
	return start.Before(r.time.First())
}
