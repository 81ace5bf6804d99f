package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Columns names the CSV columns of a trajectory file. The X column holds
// latitude for geographic trajectories, the Y column longitude.
type Columns struct {
	Tag  string
	X    string
	Y    string
	Time string
}

// DefaultColumns matches the column names of the canonical input files.
var DefaultColumns = Columns{
	Tag:  "tag_id",
	X:    "x",
	Y:    "y",
	Time: "timestamp",
}

// Reader loads trajectories from CSV files.
type Reader struct {
	Columns   Columns
	Layout    string // Go time layout of the timestamp column
	Cartesian bool
}

// NewReader builds a reader with the given column mapping and timestamp
// layout.
func NewReader(cols Columns, layout string, cartesian bool) *Reader {
	return &Reader{Columns: cols, Layout: layout, Cartesian: cartesian}
}

// ReadSingle loads one trajectory from a CSV file. When the tag column is
// present, the tag of the first row names the trajectory.
func (r *Reader) ReadSingle(path string) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory file: %w", err)
	}
	defer f.Close()

	trajs, err := r.Read(f, false)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(trajs) == 0 {
		return New("", r.Cartesian, nil), nil
	}
	return trajs[0], nil
}

// ReadMulti loads a file holding many tagged trajectories, grouped by the
// tag column. Groups keep their input order.
func (r *Reader) ReadMulti(path string) ([]*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory file: %w", err)
	}
	defer f.Close()

	trajs, err := r.Read(f, true)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return trajs, nil
}

// Read parses the CSV stream. With grouped set, a change of tag value
// starts a new trajectory; otherwise the whole stream is one trajectory.
func (r *Reader) Read(src io.Reader, grouped bool) ([]*Trajectory, error) {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	xi, ok := col[r.Columns.X]
	if !ok {
		return nil, fmt.Errorf("missing column %q", r.Columns.X)
	}
	yi, ok := col[r.Columns.Y]
	if !ok {
		return nil, fmt.Errorf("missing column %q", r.Columns.Y)
	}
	ti, ok := col[r.Columns.Time]
	if !ok {
		return nil, fmt.Errorf("missing column %q", r.Columns.Time)
	}
	tagi, hasTag := col[r.Columns.Tag]
	if grouped && !hasTag {
		return nil, fmt.Errorf("missing column %q", r.Columns.Tag)
	}

	var trajs []*Trajectory
	var points []Observation
	var tag string
	seen := false
	line := 1

	flush := func() error {
		if !seen {
			return nil
		}
		t := New(tag, r.Cartesian, points)
		if err := t.Validate(); err != nil {
			return fmt.Errorf("trajectory %q: %w", tag, err)
		}
		trajs = append(trajs, t)
		return nil
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line++

		x, err := strconv.ParseFloat(record[xi], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse %s: %w", line, r.Columns.X, err)
		}
		y, err := strconv.ParseFloat(record[yi], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse %s: %w", line, r.Columns.Y, err)
		}
		when, err := time.Parse(r.Layout, record[ti])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse %s: %w", line, r.Columns.Time, err)
		}

		rowTag := ""
		if hasTag {
			rowTag = record[tagi]
		}

		switch {
		case !seen:
			tag = rowTag
			seen = true
		case grouped && rowTag != tag:
			if err := flush(); err != nil {
				return nil, err
			}
			points = nil
			tag = rowTag
		}

		points = append(points, Observation{X: x, Y: y, Time: when})
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return trajs, nil
}
