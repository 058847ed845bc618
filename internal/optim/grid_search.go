package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Evaluate scores one parameter set; lower is better. An error marks the
// point as infeasible, e.g. a run that diverged.
type Evaluate func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

// Best is the winning point of a search.
type Best struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	Failed    int
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters, %d ranges", dynamo.ErrInvalidParameter, len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: empty range for %s", dynamo.ErrInvalidParameter, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}, nil
}

// SetWorkers bounds the number of concurrent evaluations.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Points enumerates the cartesian product of the ranges.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[i]))
		for _, p := range points {
			for _, v := range g.ranges[i] {
				np := make(map[string]float64, len(p)+1)
				for k, pv := range p {
					np[k] = pv
				}
				np[name] = v
				next = append(next, np)
			}
		}
		points = next
	}
	return points
}

// Search evaluates every point and returns the lowest score. Ties keep the
// point enumerated first.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate) (Best, error) {
	points := g.Points()
	values := make([]float64, len(points))
	errs := make([]error, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range points {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := eval(ctx, p)
			values[i], errs[i] = v, err
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Best{}, err
	}

	best := Best{Value: math.Inf(1), Evaluated: len(points)}
	for i, p := range points {
		if errs[i] != nil || math.IsNaN(values[i]) {
			best.Failed++
			continue
		}
		if values[i] < best.Value {
			best.Value = values[i]
			best.Params = p
		}
	}
	if best.Params == nil {
		return best, fmt.Errorf("all %d points failed: %w", len(points), errors.Join(errs...))
	}
	return best, nil
}
