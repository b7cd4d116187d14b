package parallel_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onedata/onezone-launcher/internal/parallel"
)

func TestMap(t *testing.T) {
	t.Parallel()

	double := func(_ context.Context, n int) (int, error) {
		if n == 13 {
			return 0, errors.New("unlucky")
		}
		return 2 * n, nil
	}

	input := func(yield func(int) bool) {
		for _, n := range []int{1, 2, 3, 13} {
			if !yield(n) {
				return
			}
		}
	}

	var got []int
	var errs int
	m := parallel.NewMap(t.Context(), 2, double)
	for d, err := range m.Iter(input) {
		if err != nil {
			errs++
			continue
		}
		got = append(got, d)
	}

	slices.Sort(got)
	require.Equal(t, []int{2, 4, 6}, got)
	require.Equal(t, 1, errs)
}

func TestMapAbandoned(t *testing.T) {
	t.Parallel()

	ident := func(_ context.Context, n int) (int, error) { return n, nil }
	input := func(yield func(int) bool) {
		for n := range 16 {
			if !yield(n) {
				return
			}
		}
	}

	// breaking out leaves workers mid-send, all of them must unwind
	// (the package TestMain verifies no goroutines linger)
	m := parallel.NewMap(t.Context(), 2, ident)
	for range m.Iter(input) {
		break
	}
}

func TestMapCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ident := func(_ context.Context, n int) (int, error) { return n, nil }
	input := func(yield func(int) bool) {
		yield(1)
	}

	var count int
	m := parallel.NewMap(ctx, 1, ident)
	for range m.Iter(input) {
		count++
	}
	require.Zero(t, count)
}
