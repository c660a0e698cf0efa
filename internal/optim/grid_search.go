package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/experiment"
)

// Evaluation is one visited grid point.
type Evaluation struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: parameter %q has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search applies each grid point to base, runs it, and minimises the named
// figure. Points whose configuration or run fails are recorded and skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, figure string) (map[string]float64, float64, []Evaluation, error) {
	for _, name := range g.paramNames {
		if _, err := base.Get(name); err != nil {
			return nil, math.NaN(), nil, err
		}
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	evals := make([]Evaluation, 0, g.Size())

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) error {
		score, err := g.evaluate(ctx, base, params, figure)
		evals = append(evals, Evaluation{Params: params, Score: score, Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		if score < best {
			best = score
			bestParams = params
		}
		return nil
	})
	if err != nil {
		return bestParams, best, evals, err
	}
	if bestParams == nil {
		return nil, math.NaN(), evals, fmt.Errorf("optim: no grid point produced a finite %q", figure)
	}
	return bestParams, best, evals, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, figure string) (float64, error) {
	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.Set(k, v); err != nil {
			return math.NaN(), err
		}
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return math.NaN(), err
	}
	runs, err := exp.Run(ctx)
	if err != nil {
		return math.NaN(), err
	}
	score, err := experiment.Figure(runs, figure)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(score) {
		return score, fmt.Errorf("optim: %q is not finite", figure)
	}
	return score, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	visit func(map[string]float64) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
