package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// Status is the result of a single readiness check.
type Status int

const (
	// StatusNotReady means the service did not answer yet. The caller
	// is supposed to retry after its poll interval.
	StatusNotReady Status = iota
	// StatusReady means the service accepts traffic.
	StatusReady
	// StatusFailed means the service can never become ready within
	// this run, e.g. the probe got an authoritative rejection.
	StatusFailed
	// StatusDenied means the service is alive but rejected the
	// probe's credentials. Terminal for the wait, yet not a service
	// failure: the caller must leave the process running.
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusNotReady:
		return "not-ready"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Probe is an idempotent, side-effect free readiness check. It is
// re-evaluated on every poll and must classify transport errors as
// StatusNotReady.
type Probe func(ctx context.Context) Status

// httpClient returns a client accepting the self-signed certificates
// onepanel generates on first boot.
func httpClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}
