// Package parallel provides a bounded parallel mapping over iterator
// sequences, used for dial-based port checks.
package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map applies mapFunc to every element of an input sequence with at
// most limit concurrent calls. Results arrive in completion order. A
// cancelled context ends the processing.
type Map[E, D any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	g       *errgroup.Group
	gctx    context.Context
	results chan result[D]
	mapFunc func(context.Context, E) (D, error)
}

func NewMap[E, D any](parent context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		ctx:     ctx,
		cancel:  cancel,
		g:       g,
		gctx:    gctx,
		results: make(chan result[D], limit),
		mapFunc: mapFunc,
	}
}

func (m *Map[E, D]) goWorkers(seq iter.Seq[E]) {
	m.g.Go(func() error {
		for entry := range seq {
			m.g.Go(func() error {
				d, err := m.mapFunc(m.gctx, entry)
				// cancellation must unblock the send, the consumer
				// may have abandoned the iteration
				select {
				case <-m.gctx.Done():
					return m.gctx.Err()
				case m.results <- result[D]{d: d, e: err}:
				}
				return nil
			})
		}
		return nil
	})
}

// Iter consumes seq and yields mapped results. The iteration stops
// when seq is drained, the consumer breaks out, or the context ends.
func (m *Map[E, D]) Iter(seq iter.Seq[E]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer m.cancel()
		m.goWorkers(seq)

		go func() {
			_ = m.g.Wait()
			close(m.results)
		}()

		for r := range m.results {
			if m.ctx.Err() != nil {
				return
			}
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}
