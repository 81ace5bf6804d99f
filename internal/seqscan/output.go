package seqscan

import (
	"fmt"
	"time"
)

// Classification labels of the per-point output stream.
const (
	MoveLabel = "MOVE"
	StopLabel = "STOP"

	TypeCluster    = "cluster"
	TypeExcursion  = "excursion"
	TypeTransition = "transition"
	TypeNoise      = "noise"
)

// Classification is one row of the per-point output stream.
type Classification struct {
	X, Y    float64
	Time    time.Time
	TagID   string
	Cluster int    // -1 for moves, running stop counter otherwise
	Class   string // MOVE or STOP_k
	Type    string // cluster, excursion, transition or noise
	Details string
}

// Stop is one row of the symbolic output stream.
type Stop struct {
	TagID     string
	StopID    string
	Start     time.Time
	End       time.Time
	CentroidX float64
	CentroidY float64
}

// buildClassifications walks the labelled points in scan order and emits
// one classification row each. The running counter advances whenever the
// point stream enters a new cluster; noise points between two visits of
// the same cluster are excursions, between different clusters transitions,
// and before or after every cluster plain noise.
func buildClassifications(dataset []*Point, tagID string) []Classification {
	rows := make([]Classification, 0, len(dataset))

	counter := 0
	current := -1
	for _, p := range dataset {
		row := Classification{
			X:     p.world.X,
			Y:     p.world.Y,
			Time:  p.time,
			TagID: tagID,
		}

		switch {
		case p.cluster == nil && p.prev != nil && p.next != nil:
			row.Cluster = -1
			row.Class = MoveLabel
			if p.prev.id == p.next.id {
				row.Type = TypeExcursion
				row.Details = fmt.Sprintf("of cluster %d", counter)
			} else {
				row.Type = TypeTransition
				row.Details = fmt.Sprintf("from cluster %d", counter)
			}

		case p.cluster != nil:
			if p.cluster.id != current {
				counter++
				current = p.cluster.id
			}
			row.Cluster = counter
			row.Class = fmt.Sprintf("%s_%d", StopLabel, counter)
			row.Type = TypeCluster
			row.Details = fmt.Sprintf("cluster # %d", counter)

		default:
			row.Cluster = -1
			row.Class = MoveLabel
			row.Type = TypeNoise
			row.Details = "before/after clustering"
		}

		rows = append(rows, row)
	}
	return rows
}

// buildStops emits one symbolic row per final cluster, in cluster order.
func buildStops(clusters []*Region, tagID string) []Stop {
	stops := make([]Stop, 0, len(clusters))
	for i, c := range clusters {
		x, y := c.Centroid()
		stops = append(stops, Stop{
			TagID:     tagID,
			StopID:    fmt.Sprintf("%s_%d", StopLabel, i+1),
			Start:     c.FirstTimestamp(),
			End:       c.LastTimestamp(),
			CentroidX: x,
			CentroidY: y,
		})
	}
	return stops
}
