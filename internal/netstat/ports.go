package netstat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"net/netip"
	"runtime"
	"time"

	"github.com/onedata/onezone-launcher/internal/parallel"
)

var errNotListening = errors.New("not listening")

// Listening reports which of the given TCP ports have a local
// listener, in the best possible way
// on linux: tries netlink and falls back to the dial method
// elsewhere: uses the dial method
func Listening(ctx context.Context, ports []uint16) map[uint16]bool {
	if runtime.GOOS == "linux" {
		listeners, err := ListenersNetlink()
		if err == nil {
			ret := make(map[uint16]bool, len(ports))
			for _, p := range ports {
				ret[p] = listeners[p]
			}
			return ret
		}
		slog.WarnContext(ctx, "netlink access failed, using dial fallback", "error", err)
	}
	return listeningDial(ctx, ports)
}

// listeningDial checks ports by attempting TCP connections to the
// loopback address.
func listeningDial(ctx context.Context, ports []uint16) map[uint16]bool {
	loop := netip.AddrFrom4([4]byte{127, 0, 0, 1})

	seq := func(yield func(uint16) bool) {
		for _, p := range ports {
			if !yield(p) {
				return
			}
		}
	}

	ret := make(map[uint16]bool, len(ports))
	m := parallel.NewMap(ctx, 4, func(_ context.Context, port uint16) (uint16, error) {
		return opened(netip.AddrPortFrom(loop, port))
	})
	for port, err := range m.Iter(iter.Seq[uint16](seq)) {
		if err != nil {
			continue
		}
		ret[port] = true
	}
	for _, p := range ports {
		if _, ok := ret[p]; !ok {
			ret[p] = false
		}
	}
	return ret
}

func opened(adr netip.AddrPort) (uint16, error) {
	conn, err := net.DialTimeout("tcp", adr.String(), 500*time.Millisecond)
	if err != nil {
		return 0, errNotListening
	}
	if err := conn.Close(); err != nil {
		return 0, fmt.Errorf("closing probe connection: %w", err)
	}
	return adr.Port(), nil
}
