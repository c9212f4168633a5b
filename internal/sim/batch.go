package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/robosim/internal/config"
)

// Scenario is one independent run in a batch.
type Scenario struct {
	Name     string
	Config   *config.Config
	MaxTicks int
	Stop     StopFunc
	Options  []Option
}

// RunBatch runs scenarios in parallel, at most limit at a time (limit <= 0
// uses GOMAXPROCS). Reports are returned in scenario order. The first error
// cancels the remaining runs.
func RunBatch(ctx context.Context, scenarios []Scenario, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	reports := make([]Report, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			s, err := New(sc.Config, sc.Options...)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			rep, err := s.Run(gctx, sc.MaxTicks, sc.Stop)
			reports[i] = rep
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
