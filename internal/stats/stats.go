// Package stats computes the summary statistics of trajectories and of
// scan results: step lengths and durations, stop duration distributions
// and move segment profiles.
package stats

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/seqscan/internal/geom"
	"github.com/banshee-data/seqscan/internal/seqscan"
	"github.com/banshee-data/seqscan/internal/trajectory"
)

// Summary is the five-number profile of a sample. Std is the population
// standard deviation.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Std    float64
}

// Summarize computes the profile of a sample. An empty sample yields the
// zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Std:    stat.PopStdDev(sorted, nil),
	}
}

// TrajectoryStats profiles the raw input sequence.
type TrajectoryStats struct {
	TagID        string
	Observations int
	Duration     time.Duration
	StepLength   Summary // per-step distance, trajectory units
	StepDuration Summary // per-step time, seconds
}

// ForTrajectory computes the input profile of one trajectory.
func ForTrajectory(traj *trajectory.Trajectory) TrajectoryStats {
	s := TrajectoryStats{
		TagID:        traj.TagID,
		Observations: traj.Len(),
		Duration:     traj.Duration(),
	}

	if traj.Len() < 2 {
		return s
	}

	lengths := make([]float64, 0, traj.Len()-1)
	durations := make([]float64, 0, traj.Len()-1)
	for i := 1; i < traj.Len(); i++ {
		lengths = append(lengths, traj.Distance(i-1, i))
		durations = append(durations, traj.DeltaTime(i-1, i).Seconds())
	}

	s.StepLength = Summarize(lengths)
	s.StepDuration = Summarize(durations)
	return s
}

// StopStats profiles the discovered stops of a scan.
type StopStats struct {
	TagID            string
	Stops            int
	Duration         Summary // stop duration, seconds
	MeanPresenceOver float64 // mean presence/duration ratio
}

// ForStops computes the stop profile of a scan result.
func ForStops(res *seqscan.Result) StopStats {
	s := StopStats{TagID: res.TagID, Stops: len(res.Clusters)}
	if len(res.Clusters) == 0 {
		return s
	}

	durations := make([]float64, 0, len(res.Clusters))
	ratios := make([]float64, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		durations = append(durations, c.Duration().Seconds())
		ratios = append(ratios, c.Ratio())
	}

	s.Duration = Summarize(durations)
	s.MeanPresenceOver = stat.Mean(ratios, nil)
	return s
}

// MoveStats profiles the move stretches of a scan: the rows classified as
// excursion, transition or noise.
type MoveStats struct {
	TagID            string
	MovePoints       int
	Excursions       int
	Transitions      int
	NoisePoints      int
	Speed            Summary // per-step speed, units/second
	StepLength       Summary
	SegmentDuration  Summary // contiguous move stretch duration, seconds
	RadiusOfGyration float64 // over all move points
}

// ForMoves computes the move profile of a scan result. The distance
// function must match the trajectory's coordinate interpretation.
func ForMoves(res *seqscan.Result, dist geom.DistanceFunc) MoveStats {
	s := MoveStats{TagID: res.TagID}

	var (
		speeds    []float64
		lengths   []float64
		segments  []float64
		moveCoord []geom.Point
	)

	var prev *seqscan.Classification
	var segStart time.Time
	inSegment := false

	flush := func(end time.Time) {
		if inSegment {
			segments = append(segments, end.Sub(segStart).Seconds())
			inSegment = false
		}
	}

	for i := range res.Classifications {
		row := &res.Classifications[i]
		if row.Type == seqscan.TypeCluster {
			if prev != nil {
				flush(prev.Time)
			}
			prev = nil
			continue
		}

		s.MovePoints++
		switch row.Type {
		case seqscan.TypeExcursion:
			s.Excursions++
		case seqscan.TypeTransition:
			s.Transitions++
		case seqscan.TypeNoise:
			s.NoisePoints++
		}

		p := geom.Point{X: row.X, Y: row.Y}
		moveCoord = append(moveCoord, p)

		if !inSegment {
			segStart = row.Time
			inSegment = true
		}

		if prev != nil {
			step := dist(geom.Point{X: prev.X, Y: prev.Y}, p)
			lengths = append(lengths, step)
			if dt := row.Time.Sub(prev.Time).Seconds(); dt > 0 {
				speeds = append(speeds, step/dt)
			}
		}
		prev = row
	}
	if prev != nil {
		flush(prev.Time)
	}

	s.Speed = Summarize(speeds)
	s.StepLength = Summarize(lengths)
	s.SegmentDuration = Summarize(segments)
	s.RadiusOfGyration = radiusOfGyration(moveCoord)
	return s
}

// radiusOfGyration is the root mean square distance of the points from
// their mean position.
func radiusOfGyration(points []geom.Point) float64 {
	if len(points) == 0 {
		return 0
	}

	var mx, my float64
	for _, p := range points {
		mx += p.X
		my += p.Y
	}
	n := float64(len(points))
	mx /= n
	my /= n

	var sum float64
	for _, p := range points {
		dx := p.X - mx
		dy := p.Y - my
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / n)
}
