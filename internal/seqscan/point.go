package seqscan

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/seqscan/internal/geom"
)

// Point is one observation of the moving object, stamped with a scan-order
// id. A point is always its own neighbor; the neighbor relation is kept
// symmetric by updateNeighbors. The regions map records the region in
// which the point serves as core, keyed by the time-frame start of the
// phase that made it dense.
//
// geometry is the box-space position used for envelopes and bounding
// boxes: the plane coordinates for cartesian trajectories, the local
// frame projection for geographic ones. world keeps the input
// coordinates, used for exact distances and for every output row.
type Point struct {
	id       int
	geometry geom.Point
	world    geom.Point
	time     time.Time

	core      bool
	neighbors map[*Point]struct{}
	regions   map[int64]*Region // key: time-frame start, unix nanos

	// Labelling, filled by post-analysis.
	cluster *Region
	prev    *Region
	next    *Region

	// First region the point was absorbed into, for the region log.
	first *Region

	lenNeighbors int
	densityRank  int
}

func newPoint(id int, boxGeom, world geom.Point, t time.Time) *Point {
	p := &Point{
		id:        id,
		geometry:  boxGeom,
		world:     world,
		time:      t,
		neighbors: make(map[*Point]struct{}),
		regions:   make(map[int64]*Region),
	}
	p.neighbors[p] = struct{}{}
	return p
}

// ID returns the scan-order id.
func (p *Point) ID() int { return p.id }

// Coords returns the point position in input coordinates: x/y for
// cartesian trajectories, lat/lon for geographic ones.
func (p *Point) Coords() geom.Point { return p.world }

// Time returns the observation timestamp.
func (p *Point) Time() time.Time { return p.time }

// Cluster returns the final cluster the point belongs to, or nil.
func (p *Point) Cluster() *Region { return p.cluster }

// NeighborCount returns the cached neighborhood size set by post-analysis.
func (p *Point) NeighborCount() int { return p.lenNeighbors }

// DensityRank returns the dense rank of the point inside its cluster,
// 1 being the densest. Zero for unclustered points.
func (p *Point) DensityRank() int { return p.densityRank }

func (p *Point) String() string {
	return fmt.Sprintf("(id: %d, geometry: %+v, time: %s)", p.id, p.geometry, p.time)
}

// isDense reports whether the point has at least threshold neighbors
// observed after the frame start. A positive answer latches the core flag.
func (p *Point) isDense(threshold int, start time.Time) bool {
	count := 0
	for q := range p.neighbors {
		if q.time.After(start) {
			count++
			if count >= threshold {
				p.core = true
				return true
			}
		}
	}
	return false
}

// isCore reports whether the point owns a core region for the frame start.
func (p *Point) isCore(start time.Time) bool {
	if _, ok := p.regions[start.UnixNano()]; ok {
		p.core = true
		return true
	}
	return false
}

// isBorder reports whether any neighbor is core for the frame start.
func (p *Point) isBorder(start time.Time) bool {
	for q := range p.neighbors {
		if q.isCore(start) {
			return true
		}
	}
	return false
}

// coreRegion returns the representative of the region the point cores for
// the frame start. The point must be core for that frame.
func (p *Point) coreRegion(start time.Time) *Region {
	return p.regions[start.UnixNano()].walk()
}

// addCoreRegion registers the region the point cores for the frame start.
// A point can core at most one region per frame start.
func (p *Point) addCoreRegion(r *Region, start time.Time) {
	key := start.UnixNano()
	if _, ok := p.regions[key]; ok {
		corrupt("point %d is already core in a region with frame start %s", p.id, start)
	}
	p.regions[key] = r
}

// neighboringRegions returns the representatives of the core regions of
// the point's neighbors for the frame start.
func (p *Point) neighboringRegions(start time.Time) map[*Region]struct{} {
	result := make(map[*Region]struct{})
	for q := range p.neighbors {
		if q.isCore(start) {
			result[q.coreRegion(start)] = struct{}{}
		}
	}
	return result
}

// getRegions returns the regions the point belongs to for the frame start:
// its own core region if core, the neighboring core regions if border,
// nothing otherwise.
func (p *Point) getRegions(start time.Time) map[*Region]struct{} {
	if _, ok := p.regions[start.UnixNano()]; ok {
		return map[*Region]struct{}{p.coreRegion(start): {}}
	}
	if p.isBorder(start) {
		return p.neighboringRegions(start)
	}
	return map[*Region]struct{}{}
}

// sortedRegions returns getRegions in ascending region-id order, so that
// "the first persistent region" is a deterministic choice.
func (p *Point) sortedRegions(start time.Time) []*Region {
	set := p.getRegions(start)
	out := make([]*Region, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// isInside reports whether the point belongs to the region's
// representative.
func (p *Point) isInside(r *Region) bool {
	return r.walk().contains(p)
}

// updateNeighbors merges the new neighbors into the point's neighborhood
// and maintains the density structure:
//
//  1. every new neighbor q learns about p (symmetry);
//  2. if q is already core, p joins q's region as border;
//  3. if q becomes dense with the addition:
//     a. a border q merges all its neighboring regions into one and its
//     in-frame neighbors join the merge result;
//     b. otherwise q starts a fresh leaf region seeded with its in-frame
//     neighbors.
func (p *Point) updateNeighbors(c *scanContext, neighbors []*Point, threshold int, start time.Time) {
	for _, q := range neighbors {
		p.neighbors[q] = struct{}{}
	}

	for _, q := range neighbors {
		q.neighbors[p] = struct{}{}

		if q.isCore(start) {
			reg := q.coreRegion(start)
			if !reg.contains(p) {
				reg.expand(c, p)
				if p.first == nil {
					p.first = reg
				}
			}
			continue
		}

		if !q.isDense(threshold, start) {
			continue
		}

		if q.isBorder(start) {
			big := mergeRegions(c, q.neighboringRegions(start), q)
			for _, n := range q.sortedNeighbors() {
				if n.time.After(big.startContext) && !big.contains(n) {
					big.expand(c, n)
					if n.first == nil {
						n.first = big
					}
				}
			}
			q.addCoreRegion(big, start)
		} else {
			fresh := newLeafRegion(c, q, start)
			for _, n := range q.sortedNeighbors() {
				if n.time.After(fresh.startContext) {
					fresh.expand(c, n)
					if n.first == nil {
						n.first = fresh
					}
				}
			}
			fresh.creationTime = q.time
			fresh.creationPresence = fresh.time.Presence()

			q.addCoreRegion(fresh, start)
			q.first = fresh
		}
	}
}

// sortedNeighbors returns the neighbor set in scan order, keeping region
// expansion order reproducible.
func (p *Point) sortedNeighbors() []*Point {
	out := make([]*Point, 0, len(p.neighbors))
	for q := range p.neighbors {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
