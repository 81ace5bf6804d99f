// Package seqscan segments the observation sequence of a single moving
// object into an alternating series of stops (persistent residences) and
// moves. The scan is a single streaming pass admitting points in timestamp
// order: an active residence is grown while the object keeps returning to
// it (expansion phase), and a new residence is searched among the
// observations that followed the last confirmed visit (look-up phase).
package seqscan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/seqscan/internal/geom"
	"github.com/banshee-data/seqscan/internal/trajectory"
)

// Params are the three clustering parameters of a scan.
type Params struct {
	// Eps is the neighborhood radius, in the trajectory's distance units:
	// plane units for cartesian trajectories, metres for geographic ones.
	Eps float64
	// MinPoints is the minimum neighborhood size for a point to be dense.
	MinPoints int
	// Delta is the presence threshold a region must accumulate to become
	// persistent.
	Delta time.Duration
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %v", p.Eps)
	}
	if p.MinPoints < 1 {
		return fmt.Errorf("min points must be >= 1, got %d", p.MinPoints)
	}
	if p.Delta <= 0 {
		return fmt.Errorf("delta must be positive, got %v", p.Delta)
	}
	return nil
}

// Result carries the two output streams of a completed scan plus the
// underlying structures for statistics and persistence.
type Result struct {
	TagID string

	// Clusters are the final persistent regions, ordered by first visit.
	Clusters []*Region
	// Points are the scanned points in id order, fully labelled.
	Points []*Point
	// Classifications is the per-observation output stream.
	Classifications []Classification
	// Stops is the symbolic output stream, one row per cluster.
	Stops []Stop
}

// Scanner runs the clustering pass over one trajectory. A scanner is
// single-use and not safe for concurrent use; independent trajectories
// get independent scanners.
type Scanner struct {
	traj   *trajectory.Trajectory
	params Params
	dist   geom.DistanceFunc
}

// New builds a scanner for the trajectory. The trajectory must already be
// validated; parameters are checked here.
func New(traj *trajectory.Trajectory, params Params) (*Scanner, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan parameters: %w", err)
	}
	return &Scanner{
		traj:   traj,
		params: params,
		dist:   traj.DistanceFunc(),
	}, nil
}

// Run executes the scan. The context is checked between observations only:
// cancellation mid-trajectory abandons the scan and returns ctx.Err().
// Internal invariant violations surface as *CorruptionError.
func (s *Scanner) Run(ctx context.Context) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CorruptionError); ok {
				result = nil
				err = ce
				return
			}
			panic(r)
		}
	}()

	dataset := s.loadPoints()
	sc := newScanContext(s.params.Delta)

	clusters := make(map[*Region]struct{})
	addCluster := func(c *Region) {
		if c != nil {
			clusters[c.walk()] = struct{}{}
		}
	}

	var timeStart, timeEnd time.Time // zero: before every observation
	var active *Region

	for _, point := range dataset {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outer := geom.RectAround(point.geometry)
		outer.Buffer(s.params.Eps + 1)
		inner := geom.RectAround(point.geometry)
		inner.Buffer(s.params.Eps * 0.7)

		var regions map[*Region]struct{}
		var noise map[*Point]struct{}
		if active == nil {
			regions = sc.lookUpLog
			noise = sc.lookUpNoise
		} else {
			regions = sc.expansionLog
			noise = sc.expansionNoise
		}

		candidates := make(map[*Point]struct{})
		for q := range noise {
			if outer.ContainsPoint(q.geometry) {
				candidates[q] = struct{}{}
			}
		}
		for _, r := range sortRegions(regions) {
			if r.inTimeFrame(timeStart) {
				r.query(outer, candidates)
			}
		}

		neighborhood := make([]*Point, 0, len(candidates)+1)
		for _, q := range sortPoints(candidates) {
			if inner.ContainsPoint(q.geometry) || s.dist(point.world, q.world) <= s.params.Eps {
				neighborhood = append(neighborhood, q)
			}
		}
		neighborhood = append(neighborhood, point)

		if active != nil && s.expand(sc, active, point, neighborhood, timeStart) {
			timeEnd = point.time

			sc.lookUpLog = make(map[*Region]struct{})
			sc.lookUpNoise = make(map[*Point]struct{})

			active = active.walk()
			continue
		}

		// Look-up: only the observations after the last confirmed visit
		// can seed the next residence.
		neigh := neighborhood[:0:0]
		for _, q := range neighborhood {
			if q.time.After(timeEnd) && !q.time.After(point.time) {
				neigh = append(neigh, q)
			}
		}

		next := s.findCluster(sc, point, neigh, timeEnd)
		if next != nil {
			if active != nil {
				addCluster(active)
			}
			timeStart = timeEnd
			timeEnd = point.time
			active = next.walk()

			sc.expansionLog = sc.lookUpLog
			sc.lookUpLog = make(map[*Region]struct{})
			sc.expansionNoise = sc.lookUpNoise
			sc.lookUpNoise = make(map[*Point]struct{})
		}
	}

	addCluster(active)

	ordered := sortClusters(clusters)
	analyze(dataset, ordered)

	return &Result{
		TagID:           s.traj.TagID,
		Clusters:        ordered,
		Points:          dataset,
		Classifications: buildClassifications(dataset, s.traj.TagID),
		Stops:           buildStops(ordered, s.traj.TagID),
	}, nil
}

// expand attempts to grow the active cluster with the point. Reports
// whether the point ended up inside the active cluster.
func (s *Scanner) expand(sc *scanContext, active *Region, point *Point, neighborhood []*Point, timeStart time.Time) bool {
	sc.phase = phaseExpansion
	sc.expansionNoise[point] = struct{}{}
	point.updateNeighbors(sc, neighborhood, s.params.MinPoints, timeStart)

	if !active.startContext.Equal(timeStart) {
		corrupt("active cluster %d start context %s differs from frame start %s",
			active.id, active.startContext, timeStart)
	}

	return point.isInside(active)
}

// findCluster runs the look-up phase for the point and returns the first
// persistent region it belongs to, or nil. Candidate regions are visited
// in ascending id order so the choice is deterministic.
func (s *Scanner) findCluster(sc *scanContext, point *Point, neighborhood []*Point, timeEnd time.Time) *Region {
	sc.phase = phaseLookUp
	sc.lookUpNoise[point] = struct{}{}
	point.updateNeighbors(sc, neighborhood, s.params.MinPoints, timeEnd)

	for _, r := range point.sortedRegions(timeEnd) {
		if r.Persistent() {
			return r
		}
	}
	return nil
}

// loadPoints stamps scan-order ids onto the trajectory observations. The
// trajectory is already time-sorted by its loader; the sort here is stable
// and keeps ties in input order.
//
// Cartesian observations keep their coordinates for both box space and
// distance space. Geographic observations are projected onto a local
// frame centred on the first observation, so envelope buffers share the
// metre unit of the neighborhood radius; exact distances still use the
// original latitude/longitude.
func (s *Scanner) loadPoints() []*Point {
	obs := make([]trajectory.Observation, len(s.traj.Points))
	copy(obs, s.traj.Points)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })

	var proj *geom.LocalProjection
	if !s.traj.Cartesian && len(obs) > 0 {
		proj = geom.NewLocalProjection(obs[0].X, obs[0].Y)
	}

	points := make([]*Point, len(obs))
	for i, o := range obs {
		world := o.Geometry()
		boxGeom := world
		if proj != nil {
			boxGeom = proj.Project(o.X, o.Y)
		}
		points[i] = newPoint(i, boxGeom, world, o.Time)
	}
	return points
}

func sortRegions(set map[*Region]struct{}) []*Region {
	out := make([]*Region, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func sortPoints(set map[*Point]struct{}) []*Point {
	out := make([]*Point, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// sortClusters orders the final clusters by first visit, then id.
func sortClusters(set map[*Region]struct{}) []*Region {
	out := make([]*Region, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].FirstTimestamp(), out[j].FirstTimestamp()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].id < out[j].id
	})
	return out
}
