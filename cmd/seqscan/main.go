// Command seqscan segments trajectory CSV files into stops and moves.
//
// Single mode scans one trajectory file; multi mode splits the input file
// by tag column and fans the trajectories out across a worker pool. The
// two output streams are written as CSV; optionally the results are
// persisted to SQLite, summarised as statistics and rendered as plots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/banshee-data/seqscan/internal/config"
	"github.com/banshee-data/seqscan/internal/db"
	"github.com/banshee-data/seqscan/internal/report"
	"github.com/banshee-data/seqscan/internal/runner"
	"github.com/banshee-data/seqscan/internal/seqscan"
	"github.com/banshee-data/seqscan/internal/stats"
	"github.com/banshee-data/seqscan/internal/trajectory"
	"github.com/banshee-data/seqscan/internal/units"
	"github.com/banshee-data/seqscan/internal/version"
)

var (
	inputFlag    = flag.String("input", "", "Input trajectory CSV file (required)")
	outputFlag   = flag.String("output", "output.csv", "Per-point classification output file")
	symbolicFlag = flag.String("output-symbolic", "output_symbolic.csv", "Symbolic stops output file")
	configFlag   = flag.String("config", "", "Path to JSON configuration file (optional)")
	multiFlag    = flag.Bool("multi", false, "Treat the input as a multi-trajectory file grouped by tag")
	epsFlag      = flag.Float64("eps", 0, "Neighborhood radius (overrides config)")
	nFlag        = flag.Int("n", 0, "Minimum neighborhood size for a dense point (overrides config)")
	deltaFlag    = flag.Float64("delta", 0, "Presence threshold in the configured time unit (overrides config)")
	workersFlag  = flag.Int("workers", 0, "Trajectory worker pool size (overrides config)")
	dbFlag       = flag.String("db-path", "", "Persist results to this SQLite database")
	statsFlag    = flag.String("stats", "", "Write per-trajectory statistics CSV to this file")
	reportFlag   = flag.String("report", "", "Write an HTML symbolic report to this file")
	plotFlag     = flag.String("plot", "", "Write a trajectory plot PNG to this file (or directory when more than one trajectory is scanned)")
	verboseFlag  = flag.Bool("verbose", false, "Log per-trajectory progress")
	versionFlag  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String())
		return
	}

	if *inputFlag == "" {
		flag.Usage()
		log.Fatal("missing required -input flag")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("seqscan: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg := config.Empty()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	params, err := resolveParams(cfg)
	if err != nil {
		return err
	}

	workers := cfg.GetWorkers()
	if *workersFlag > 0 {
		workers = *workersFlag
	}

	cols := trajectory.Columns{
		Tag:  cfg.GetTagColumn(),
		X:    cfg.GetXColumn(),
		Y:    cfg.GetYColumn(),
		Time: cfg.GetTimeColumn(),
	}
	reader := trajectory.NewReader(cols, cfg.GetTimestampLayout(), cfg.GetIsCartesian())

	var trajs []*trajectory.Trajectory
	if *multiFlag {
		trajs, err = reader.ReadMulti(*inputFlag)
	} else {
		var traj *trajectory.Trajectory
		traj, err = reader.ReadSingle(*inputFlag)
		if traj != nil {
			trajs = []*trajectory.Trajectory{traj}
		}
	}
	if err != nil {
		return err
	}
	if len(trajs) == 0 {
		return fmt.Errorf("no trajectories in %s", *inputFlag)
	}
	log.Printf("loaded %d trajectories from %s", len(trajs), *inputFlag)

	pool := runner.New(params, workers)
	pool.Verbose = *verboseFlag
	outcomes := pool.Run(ctx, trajs)

	var results []*seqscan.Result
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			log.Printf("skipping trajectory %q: %v", out.Trajectory.TagID, out.Err)
			continue
		}
		results = append(results, out.Result)
	}
	if len(results) == 0 {
		return fmt.Errorf("all %d trajectories failed", len(outcomes))
	}
	if failed > 0 {
		log.Printf("%d of %d trajectories failed", failed, len(outcomes))
	}

	if err := writeOutputs(cfg, cols, results); err != nil {
		return err
	}

	if *dbFlag != "" {
		if err := persistResults(cfg, params, results); err != nil {
			return err
		}
	}

	if *statsFlag != "" {
		if err := writeStats(cfg, trajs, results); err != nil {
			return err
		}
	}

	if *reportFlag != "" {
		if err := writeReport(results[0]); err != nil {
			return err
		}
	}

	if *plotFlag != "" {
		if err := writePlots(results); err != nil {
			return err
		}
	}

	return nil
}

// resolveParams merges the config file values with any explicit flag
// overrides into the scan parameters.
func resolveParams(cfg *config.Config) (seqscan.Params, error) {
	eps := cfg.GetEps()
	if *epsFlag > 0 {
		eps = *epsFlag
	}

	minPoints := cfg.GetMinPoints()
	if *nFlag > 0 {
		minPoints = *nFlag
	}

	delta, err := cfg.GetDelta()
	if err != nil {
		return seqscan.Params{}, err
	}
	if *deltaFlag > 0 {
		seconds, err := units.ToSeconds(*deltaFlag, cfg.GetTimeUnit())
		if err != nil {
			return seqscan.Params{}, err
		}
		delta = time.Duration(seconds * float64(time.Second))
	}

	params := seqscan.Params{Eps: eps, MinPoints: minPoints, Delta: delta}
	if err := params.Validate(); err != nil {
		return seqscan.Params{}, err
	}
	return params, nil
}

func writeOutputs(cfg *config.Config, cols trajectory.Columns, results []*seqscan.Result) error {
	writer := &seqscan.Writer{
		TagColumn:  cols.Tag,
		XColumn:    cols.X,
		YColumn:    cols.Y,
		TimeColumn: cols.Time,
		Layout:     cfg.GetTimestampLayout(),
		Cartesian:  cfg.GetIsCartesian(),
	}

	classFile, err := os.Create(*outputFlag)
	if err != nil {
		return fmt.Errorf("create %s: %w", *outputFlag, err)
	}
	defer classFile.Close()

	stopsFile, err := os.Create(*symbolicFlag)
	if err != nil {
		return fmt.Errorf("create %s: %w", *symbolicFlag, err)
	}
	defer stopsFile.Close()

	for i, res := range results {
		header := i == 0
		if err := writer.WriteClassifications(classFile, res.Classifications, header); err != nil {
			return err
		}
		if err := writer.WriteStops(stopsFile, res.Stops, header); err != nil {
			return err
		}
	}

	log.Printf("wrote %s and %s", *outputFlag, *symbolicFlag)
	return nil
}

func persistResults(cfg *config.Config, params seqscan.Params, results []*seqscan.Result) error {
	store, err := db.Open(*dbFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, res := range results {
		runID, err := store.InsertResult(res, cfg.GetIsCartesian(), params, time.Now())
		if err != nil {
			return fmt.Errorf("persist trajectory %q: %w", res.TagID, err)
		}
		log.Printf("persisted trajectory %q as run %s", res.TagID, runID)
	}
	return nil
}

func writeStats(cfg *config.Config, trajs []*trajectory.Trajectory, results []*seqscan.Result) error {
	f, err := os.Create(*statsFlag)
	if err != nil {
		return fmt.Errorf("create %s: %w", *statsFlag, err)
	}
	defer f.Close()

	byTag := make(map[string]*trajectory.Trajectory, len(trajs))
	for _, t := range trajs {
		byTag[t.TagID] = t
	}

	timeUnit := cfg.GetTimeUnit()
	fmt.Fprintf(f, "%s,observations,duration_%s,stops,mean_stop_duration_%s,move_points,excursions,transitions\n",
		cfg.GetTagColumn(), timeUnit, timeUnit)

	for _, res := range results {
		traj := byTag[res.TagID]
		if traj == nil {
			continue
		}

		ts := stats.ForTrajectory(traj)
		ss := stats.ForStops(res)
		ms := stats.ForMoves(res, traj.DistanceFunc())

		fmt.Fprintf(f, "%s,%d,%s,%d,%s,%d,%d,%d\n",
			res.TagID,
			ts.Observations,
			formatDuration(ts.Duration.Seconds(), timeUnit),
			ss.Stops,
			formatDuration(ss.Duration.Mean, timeUnit),
			ms.MovePoints,
			ms.Excursions,
			ms.Transitions,
		)
	}

	log.Printf("wrote statistics to %s", *statsFlag)
	return nil
}

func formatDuration(seconds float64, unit string) string {
	return strconv.FormatFloat(units.FromSeconds(seconds, unit), 'f', -1, 64)
}

func writeReport(res *seqscan.Result) error {
	f, err := os.Create(*reportFlag)
	if err != nil {
		return fmt.Errorf("create %s: %w", *reportFlag, err)
	}
	defer f.Close()

	if err := report.RenderSymbolic(f, res); err != nil {
		return err
	}
	log.Printf("wrote symbolic report to %s", *reportFlag)
	return nil
}

func writePlots(results []*seqscan.Result) error {
	if len(results) == 1 {
		if err := report.SaveTrajectoryPlot(*plotFlag, results[0]); err != nil {
			return err
		}
		log.Printf("wrote trajectory plot to %s", *plotFlag)
		return nil
	}

	if err := os.MkdirAll(*plotFlag, 0o755); err != nil {
		return fmt.Errorf("create plot directory %s: %w", *plotFlag, err)
	}
	for i, res := range results {
		name := res.TagID
		if name == "" {
			name = fmt.Sprintf("trajectory_%d", i+1)
		}
		path := filepath.Join(*plotFlag, name+".png")
		if err := report.SaveTrajectoryPlot(path, res); err != nil {
			return err
		}
	}
	log.Printf("wrote %d trajectory plots to %s", len(results), *plotFlag)
	return nil
}
