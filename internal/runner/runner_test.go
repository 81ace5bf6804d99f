package runner

import (
	"context"
	"testing"
	"time"

	"github.com/banshee-data/seqscan/internal/seqscan"
	"github.com/banshee-data/seqscan/internal/trajectory"
)

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func stopTrajectory(tag string, x float64) *trajectory.Trajectory {
	return trajectory.New(tag, true, []trajectory.Observation{
		{X: x, Y: 0, Time: ts(0)},
		{X: x, Y: 0, Time: ts(10)},
		{X: x, Y: 0, Time: ts(20)},
		{X: x, Y: 0, Time: ts(30)},
	})
}

func testParams() seqscan.Params {
	return seqscan.Params{Eps: 1, MinPoints: 2, Delta: 15 * time.Second}
}

func TestRunScansAllTrajectories(t *testing.T) {
	trajs := []*trajectory.Trajectory{
		stopTrajectory("a", 0),
		stopTrajectory("b", 100),
		stopTrajectory("c", 200),
	}

	outcomes := New(testParams(), 2).Run(context.Background(), trajs)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	for i, out := range outcomes {
		if out.Err != nil {
			t.Errorf("outcome %d: unexpected error %v", i, out.Err)
			continue
		}
		if out.Trajectory.TagID != trajs[i].TagID {
			t.Errorf("outcome %d out of order: %q", i, out.Trajectory.TagID)
		}
		if len(out.Result.Stops) != 1 {
			t.Errorf("trajectory %q: expected 1 stop, got %d", out.Trajectory.TagID, len(out.Result.Stops))
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	bad := trajectory.New("bad", false, []trajectory.Observation{
		{X: 95, Y: 0, Time: ts(0)}, // illegal latitude
	})
	trajs := []*trajectory.Trajectory{stopTrajectory("good", 0), bad}

	outcomes := New(testParams(), 1).Run(context.Background(), trajs)

	if outcomes[0].Err != nil {
		t.Errorf("good trajectory failed: %v", outcomes[0].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("bad trajectory must report its rejection")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trajs := []*trajectory.Trajectory{stopTrajectory("a", 0), stopTrajectory("b", 10)}
	outcomes := New(testParams(), 1).Run(ctx, trajs)

	for i, out := range outcomes {
		if out.Err == nil {
			t.Errorf("outcome %d: expected cancellation error", i)
		}
	}
}

func TestNewClampsWorkers(t *testing.T) {
	if r := New(testParams(), 0); r.Workers != 1 {
		t.Errorf("workers = %d, want 1", r.Workers)
	}
}

func TestRunSingleWorkerDeterministic(t *testing.T) {
	trajs := func() []*trajectory.Trajectory {
		return []*trajectory.Trajectory{stopTrajectory("a", 0), stopTrajectory("b", 50)}
	}

	first := New(testParams(), 1).Run(context.Background(), trajs())
	second := New(testParams(), 4).Run(context.Background(), trajs())

	for i := range first {
		if first[i].Err != nil || second[i].Err != nil {
			t.Fatalf("unexpected errors: %v, %v", first[i].Err, second[i].Err)
		}
		if len(first[i].Result.Stops) != len(second[i].Result.Stops) {
			t.Errorf("outcome %d differs between pool sizes", i)
		}
	}
}
