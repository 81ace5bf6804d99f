// Package runner fans independent trajectories out across a bounded pool
// of workers. Each trajectory is scanned by its own scanner with fully
// isolated state, so the pool shares nothing but the job queue.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/banshee-data/seqscan/internal/seqscan"
	"github.com/banshee-data/seqscan/internal/timeutil"
	"github.com/banshee-data/seqscan/internal/trajectory"
)

// Runner schedules trajectory scans over a worker pool.
type Runner struct {
	Params  seqscan.Params
	Workers int
	Clock   timeutil.Clock
	Verbose bool
}

// New builds a runner with the given parameters and pool size. Workers
// below one are clamped to one.
func New(params seqscan.Params, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		Params:  params,
		Workers: workers,
		Clock:   timeutil.RealClock{},
	}
}

// Outcome pairs one trajectory with its scan result or failure.
type Outcome struct {
	Trajectory *trajectory.Trajectory
	Result     *seqscan.Result
	Err        error
}

// Run scans every trajectory and returns one outcome per input, in input
// order. A failing trajectory does not stop the batch: its outcome
// carries the error and the other workers continue. Cancelling the
// context stops the pool at trajectory boundaries.
func (r *Runner) Run(ctx context.Context, trajs []*trajectory.Trajectory) []Outcome {
	outcomes := make([]Outcome, len(trajs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = r.scanOne(ctx, trajs[idx])
			}
		}()
	}

	for i := range trajs {
		select {
		case <-ctx.Done():
			// Unscheduled trajectories report the cancellation.
			for j := i; j < len(trajs); j++ {
				if outcomes[j].Trajectory == nil {
					outcomes[j] = Outcome{Trajectory: trajs[j], Err: ctx.Err()}
				}
			}
			close(jobs)
			wg.Wait()
			return outcomes
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (r *Runner) scanOne(ctx context.Context, traj *trajectory.Trajectory) Outcome {
	out := Outcome{Trajectory: traj}

	if err := traj.Validate(); err != nil {
		out.Err = fmt.Errorf("trajectory %q rejected: %w", traj.TagID, err)
		return out
	}

	scanner, err := seqscan.New(traj, r.Params)
	if err != nil {
		out.Err = fmt.Errorf("trajectory %q: %w", traj.TagID, err)
		return out
	}

	started := r.Clock.Now()
	res, err := scanner.Run(ctx)
	if err != nil {
		out.Err = fmt.Errorf("scan trajectory %q: %w", traj.TagID, err)
		return out
	}

	if r.Verbose {
		log.Printf("scanned trajectory %q: %d observations, %d stops in %v",
			traj.TagID, traj.Len(), len(res.Stops), r.Clock.Since(started))
	}

	out.Result = res
	return out
}
