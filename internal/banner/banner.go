// Package banner emits the operator-facing startup output of the
// launcher: the starting and ready notices and the container details.
package banner

import (
	"fmt"
	"io"
	"net"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[1;32m"
	colorYellow = "\033[1;33m"

	rule = "======================================================================="
)

// Starting writes the first-phase banner. Emitted immediately, before
// the service process is spawned.
func Starting(w io.Writer) {
	fmt.Fprintln(w, colorYellow+rule)
	fmt.Fprintln(w, "Starting Onezone...")
	fmt.Fprintln(w, "This may take a few minutes. Grab a coffee.")
	fmt.Fprintln(w, rule+colorReset)
}

// Ready writes the single success banner embedding the resolved
// addresses. Emitted exactly once, only after a readiness probe
// reported ready.
func Ready(w io.Writer, addrs []string) {
	fmt.Fprintln(w, colorGreen+rule)
	fmt.Fprintln(w, "Onezone is up and running!")
	for _, addr := range addrs {
		fmt.Fprintf(w, "Visit https://%s to access the web interface.\n", addr)
	}
	fmt.Fprintln(w, rule+colorReset)
}

// Addresses returns all non-loopback unicast addresses of the host's
// network interfaces.
func Addresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("listing interface addresses: %w", err)
	}

	var ret []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ret = append(ret, ipNet.IP.String())
	}
	return ret, nil
}
