// Package trajectory holds the input data model of the scan engine: an
// ordered sequence of timestamped observations of a single moving object,
// plus the CSV reader that loads it.
package trajectory

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/seqscan/internal/geom"
)

// Observation is one raw input fix. For cartesian trajectories X and Y are
// plane coordinates; for geographic ones X is latitude and Y is longitude
// in degrees.
type Observation struct {
	X, Y float64
	Time time.Time
}

// Geometry returns the observation position as a geometry point.
func (o Observation) Geometry() geom.Point {
	return geom.Point{X: o.X, Y: o.Y}
}

// Trajectory is the ordered observation sequence of one tagged object.
type Trajectory struct {
	TagID     string
	Cartesian bool
	Points    []Observation

	dist geom.DistanceFunc
}

// New builds a trajectory, sorting the observations by timestamp. The sort
// is stable so ties keep their input order.
func New(tagID string, cartesian bool, points []Observation) *Trajectory {
	t := &Trajectory{
		TagID:     tagID,
		Cartesian: cartesian,
		Points:    points,
		dist:      geom.ForCartesian(cartesian),
	}
	sort.SliceStable(t.Points, func(i, j int) bool {
		return t.Points[i].Time.Before(t.Points[j].Time)
	})
	return t
}

// Validate checks the coordinate ranges of every observation. Geographic
// trajectories require latitude in [-90, 90] and longitude in [-180, 180].
func (t *Trajectory) Validate() error {
	if t.Cartesian {
		return nil
	}
	for i, p := range t.Points {
		if p.X < -90 || p.X > 90 {
			return fmt.Errorf("observation %d: illegal latitude %v", i, p.X)
		}
		if p.Y < -180 || p.Y > 180 {
			return fmt.Errorf("observation %d: illegal longitude %v", i, p.Y)
		}
	}
	return nil
}

// Len returns the number of observations.
func (t *Trajectory) Len() int {
	return len(t.Points)
}

// Distance returns the distance between observations i and j, in the
// trajectory's units: plane units when cartesian, metres otherwise.
func (t *Trajectory) Distance(i, j int) float64 {
	return t.dist(t.Points[i].Geometry(), t.Points[j].Geometry())
}

// DistanceFunc returns the per-trajectory distance function.
func (t *Trajectory) DistanceFunc() geom.DistanceFunc {
	if t.dist == nil {
		t.dist = geom.ForCartesian(t.Cartesian)
	}
	return t.dist
}

// DeltaTime returns the time separating observations i and j.
func (t *Trajectory) DeltaTime(i, j int) time.Duration {
	return t.Points[j].Time.Sub(t.Points[i].Time)
}

// Duration returns the span from first to last observation.
func (t *Trajectory) Duration() time.Duration {
	if len(t.Points) < 2 {
		return 0
	}
	return t.Points[len(t.Points)-1].Time.Sub(t.Points[0].Time)
}
