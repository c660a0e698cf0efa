package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/slicksim/internal/config"
)

func base() *config.Config {
	c := config.DefaultConfig()
	c.Field.GridSize = 41
	c.SimTimeSec = 0.2
	return c
}

func TestNewGridSearchValidates(t *testing.T) {
	if _, err := NewGridSearch([]string{"mu"}, nil); err == nil {
		t.Error("expected error for missing range")
	}
	if _, err := NewGridSearch([]string{"mu"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}
	g, err := NewGridSearch([]string{"mu", "eps"}, [][]float64{{0.1, 0.5, 1}, {0.1, 0.2}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Size() != 6 {
		t.Errorf("size = %d, want 6", g.Size())
	}
}

func TestSearchVisitsEveryPoint(t *testing.T) {
	g, err := NewGridSearch([]string{"mu", "eps"}, [][]float64{{0.1, 1}, {0.1, 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	best, score, evals, err := g.Search(context.Background(), base(), "mean_error")
	if err != nil {
		t.Fatal(err)
	}
	if len(evals) != 4 {
		t.Fatalf("visited %d points, want 4", len(evals))
	}
	seen := map[[2]float64]bool{}
	for _, e := range evals {
		if e.Err != nil {
			t.Errorf("%v: %v", e.Params, e.Err)
		}
		if e.Score < score {
			t.Errorf("point %v scored %g below the reported best %g", e.Params, e.Score, score)
		}
		seen[[2]float64{e.Params["mu"], e.Params["eps"]}] = true
	}
	if len(seen) != 4 {
		t.Errorf("distinct points = %d", len(seen))
	}
	if _, ok := best["mu"]; !ok {
		t.Errorf("best params = %v", best)
	}
}

func TestSearchUnknownParam(t *testing.T) {
	g, _ := NewGridSearch([]string{"nope"}, [][]float64{{1}})
	if _, _, _, err := g.Search(context.Background(), base(), "mean_error"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestSearchUnknownFigure(t *testing.T) {
	g, _ := NewGridSearch([]string{"mu"}, [][]float64{{0.1}})
	_, _, evals, err := g.Search(context.Background(), base(), "nope")
	if err == nil {
		t.Fatal("expected error when no point scores")
	}
	if len(evals) != 1 || evals[0].Err == nil {
		t.Errorf("evals = %+v", evals)
	}
}

func TestSearchCancelled(t *testing.T) {
	g, _ := NewGridSearch([]string{"mu"}, [][]float64{{0.1, 0.2}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, _, err := g.Search(ctx, base(), "mean_error"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
