package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/robosim/internal/core/observability/log"
)

// StopFunc ends a run when it returns true for the latest snapshot.
type StopFunc func(Snapshot) bool

// UntilGoal stops once the car is within line thickness of the last waypoint.
func UntilGoal(s Snapshot) bool { return s.Goal }

// UntilHalted stops once the navigator has given up.
func UntilHalted(s Snapshot) bool { return s.Halted }

// AnyOf stops when any of fns does.
func AnyOf(fns ...StopFunc) StopFunc {
	return func(s Snapshot) bool {
		for _, fn := range fns {
			if fn != nil && fn(s) {
				return true
			}
		}
		return false
	}
}

// Run steps until maxTicks (0 for no limit), until stop returns true, or
// until ctx is cancelled. Cancellation is checked between ticks; the report
// covers every completed tick and the context error is returned with it.
func (s *Simulation) Run(ctx context.Context, maxTicks int, stop StopFunc) (Report, error) {
	var pace <-chan time.Time
	if s.pace > 0 {
		ticker := time.NewTicker(s.pace)
		defer ticker.Stop()
		pace = ticker.C
	}

	start := time.Now()
	for n := 0; maxTicks == 0 || n < maxTicks; n++ {
		if err := ctx.Err(); err != nil {
			return s.finish(start), fmt.Errorf("run %s stopped at tick %d: %w", s.id, s.tick, err)
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return s.finish(start), fmt.Errorf("run %s stopped at tick %d: %w", s.id, s.tick, ctx.Err())
			case <-pace:
			}
		}
		if snap := s.Step(); stop != nil && stop(snap) {
			break
		}
	}
	return s.finish(start), nil
}

func (s *Simulation) finish(start time.Time) Report {
	r := s.Report()
	s.log.Info("run finished",
		log.Uint64("ticks", r.Ticks),
		log.String("state", r.FinalState),
		log.Bool("goal", r.ReachedGoal),
		log.Int("rejected", r.Rejected),
		log.Float64("cross_track_mean", r.CrossTrackMean),
		log.Duration("wall", time.Since(start)))
	return r
}
