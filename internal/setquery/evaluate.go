package setquery

import (
	"context"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/worker"
)

// LookupFunc returns the IDs of resources matching one predicate.
type LookupFunc func(ctx context.Context, p Predicate) (mapset.Set[int], error)

// Evaluator folds an expression's term sets left to right. With Workers
// above one the per-term lookups run concurrently; the fold does not.
type Evaluator struct {
	Lookup  LookupFunc
	Workers int
}

// Evaluate runs expr sequentially with lookup.
func Evaluate(ctx context.Context, expr Expression, lookup LookupFunc) (mapset.Set[int], error) {
	return Evaluator{Lookup: lookup, Workers: 1}.Evaluate(ctx, expr)
}

// Evaluate returns lookup(term0), then applies each later term in written
// order. A failed lookup aborts the whole evaluation and its error is
// returned unchanged.
func (e Evaluator) Evaluate(ctx context.Context, expr Expression) (mapset.Set[int], error) {
	if len(expr.Terms) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrMalformedQueryToken)
	}

	sets, err := e.lookupAll(ctx, expr.Terms)
	if err != nil {
		return nil, err
	}

	result := sets[0].Clone()
	for i, term := range expr.Terms[1:] {
		next := sets[i+1]
		switch term.Op {
		case Union:
			result = result.Union(next)
		case Difference:
			result = result.Difference(next)
		default:
			result = result.Intersect(next)
		}
		log.Debug("Applied query term", "op", term.Op.String(), "predicate", term.Predicate.String(), "size", result.Cardinality())
	}

	return result, nil
}

func (e Evaluator) lookupAll(ctx context.Context, terms []Term) ([]mapset.Set[int], error) {
	sets := make([]mapset.Set[int], len(terms))

	if e.Workers <= 1 || len(terms) == 1 {
		for i, term := range terms {
			s, err := e.Lookup(ctx, term.Predicate)
			if err != nil {
				return nil, err
			}
			sets[i] = orEmpty(s)
		}
		return sets, nil
	}

	pool := worker.NewPool(ctx, min(e.Workers, len(terms)))
	pool.Start()

	results := make([]chan error, len(terms))
	for i, term := range terms {
		results[i] = make(chan error, 1)
		job := worker.Job{
			ID: term.Predicate.String(),
			Handler: func(ctx context.Context) error {
				s, err := e.Lookup(ctx, term.Predicate)
				if err != nil {
					return err
				}
				sets[i] = orEmpty(s)
				return nil
			},
			Result: results[i],
		}
		if err := pool.Submit(job); err != nil {
			pool.Stop()
			return nil, err
		}
	}

	// Errors are reported for the earliest failing term so the outcome does
	// not depend on scheduling.
	var firstErr error
	for _, ch := range results {
		if err := <-ch; err != nil && firstErr == nil {
			firstErr = err
			pool.Cancel()
		}
	}
	pool.Stop()

	if firstErr != nil {
		return nil, firstErr
	}
	return sets, nil
}

func orEmpty(s mapset.Set[int]) mapset.Set[int] {
	if s == nil {
		return mapset.NewSet[int]()
	}
	return s
}

// Sorted returns the set's members in ascending order.
func Sorted(s mapset.Set[int]) []int {
	ids := s.ToSlice()
	slices.Sort(ids)
	return ids
}
