package seqscan

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Writer serialises the two output streams of a scan as CSV, with column
// names mirroring the input file and a configurable timestamp layout.
type Writer struct {
	TagColumn  string
	XColumn    string
	YColumn    string
	TimeColumn string
	Layout     string
	Cartesian  bool
}

// WriteClassifications writes the per-point stream. The header is emitted
// only when header is true, so append-mode writers can skip it.
func (w *Writer) WriteClassifications(dst io.Writer, rows []Classification, header bool) error {
	cw := csv.NewWriter(dst)

	if header {
		if err := cw.Write([]string{
			w.XColumn, w.YColumn, w.TimeColumn, w.TagColumn,
			"cluster", "class", "type", "details",
		}); err != nil {
			return fmt.Errorf("write classification header: %w", err)
		}
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatFloat(row.X, 'f', -1, 64),
			strconv.FormatFloat(row.Y, 'f', -1, 64),
			row.Time.Format(w.Layout),
			row.TagID,
			strconv.Itoa(row.Cluster),
			row.Class,
			row.Type,
			row.Details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write classification row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush classification rows: %w", err)
	}
	return nil
}

// WriteStops writes the symbolic stream. Centroid column names follow the
// coordinate interpretation: x/y for cartesian, lat/lon for geographic.
func (w *Writer) WriteStops(dst io.Writer, stops []Stop, header bool) error {
	cw := csv.NewWriter(dst)

	if header {
		centroidX, centroidY := "centroid_x", "centroid_y"
		if !w.Cartesian {
			centroidX, centroidY = "centroid_lat", "centroid_lon"
		}
		if err := cw.Write([]string{
			w.TagColumn, "stop_id", "start_time", "end_time", centroidX, centroidY,
		}); err != nil {
			return fmt.Errorf("write stops header: %w", err)
		}
	}

	for _, s := range stops {
		record := []string{
			s.TagID,
			s.StopID,
			s.Start.Format(w.Layout),
			s.End.Format(w.Layout),
			strconv.FormatFloat(s.CentroidX, 'f', -1, 64),
			strconv.FormatFloat(s.CentroidY, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write stops row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush stops rows: %w", err)
	}
	return nil
}
