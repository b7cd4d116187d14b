package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/onedata/onezone-launcher/internal/probe"
)

// State of one supervised startup. StateReady and StateFailed are
// terminal, there are no transitions out of them.
type State int

const (
	StateStarting State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is computed exactly once per Supervisor and delivered on the
// channel returned by Await.
type Outcome struct {
	State    State
	Attempts uint
	Err      error
}

// Policy bounds the readiness loop. The defaults mirror the health
// wait of the original deployment scripts: one probe per second, two
// minutes total.
type Policy struct {
	Interval    time.Duration
	MaxAttempts uint
}

const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 120
)

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// Terminator kills the supervised process tree. Implemented by Runner.
type Terminator interface {
	Terminate() error
}

var (
	ErrNeverReady = errors.New("service did not become ready")
	// ErrDenied reports a probe whose credentials were rejected. The
	// service itself is alive, so it is not terminated.
	ErrDenied   = errors.New("service rejected the probe credentials")
	errNotReady = errors.New("not ready")
)

// Supervisor runs the readiness loop concurrently with the caller and
// reconciles it into a single Outcome. Probes are strictly sequential,
// a new one is never issued before the previous interval elapsed.
type Supervisor struct {
	probe  probe.Probe
	policy Policy
	term   Terminator

	awaitOnce sync.Once
	failOnce  sync.Once
	outcome   chan Outcome
}

func New(p probe.Probe, policy Policy, term Terminator) *Supervisor {
	return &Supervisor{
		probe:   p,
		policy:  policy.normalized(),
		term:    term,
		outcome: make(chan Outcome, 1),
	}
}

// Await starts the background readiness loop and returns the one-shot
// outcome channel. Subsequent calls return the same channel without
// spawning another loop. Cancelling ctx aborts the loop and is
// reported as StateFailed.
func (s *Supervisor) Await(ctx context.Context) <-chan Outcome {
	s.awaitOnce.Do(func() {
		go s.run(ctx)
	})
	return s.outcome
}

func (s *Supervisor) run(ctx context.Context) {
	var attempts uint

	op := func() error {
		attempts++
		switch s.probe(ctx) {
		case probe.StatusReady:
			return nil
		case probe.StatusFailed:
			return backoff.Permanent(ErrNeverReady)
		case probe.StatusDenied:
			return backoff.Permanent(ErrDenied)
		default:
			if attempts%10 == 0 {
				slog.InfoContext(ctx, "service is not ready yet, retrying",
					"attempts", attempts)
			}
			return errNotReady
		}
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.policy.Interval),
			uint64(s.policy.MaxAttempts-1)),
		ctx)

	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, errNotReady) {
			err = ErrNeverReady
		}
		s.fail(ctx, attempts, err)
		return
	}

	slog.DebugContext(ctx, "service became ready", "attempts", attempts)
	s.outcome <- Outcome{State: StateReady, Attempts: attempts}
	close(s.outcome)
}

// fail publishes the failed outcome, terminating the service process
// tree unless the cause proves it is alive. Guarded so racing failure
// triggers cannot double-terminate.
func (s *Supervisor) fail(ctx context.Context, attempts uint, cause error) {
	s.failOnce.Do(func() {
		slog.ErrorContext(ctx, "startup await failed",
			"attempts", attempts, "error", cause)
		if s.term != nil && !errors.Is(cause, ErrDenied) {
			if err := s.term.Terminate(); err != nil && !errors.Is(err, ErrNotStarted) {
				slog.ErrorContext(ctx, "terminating the service failed", "error", err)
			}
		}
		s.outcome <- Outcome{State: StateFailed, Attempts: attempts, Err: cause}
		close(s.outcome)
	})
}
