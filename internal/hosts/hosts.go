// Package hosts maintains the container's host-resolution records.
package hosts

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Path of the system hosts file.
const Path = "/etc/hosts"

// FQDN resolves the domain-qualified form of the local hostname. When
// no qualified name can be resolved the plain hostname is returned.
func FQDN() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("reading hostname: %w", err)
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil {
		return hostname, nil
	}
	for _, addr := range addrs {
		names, err := net.LookupAddr(addr)
		if err != nil {
			continue
		}
		for _, name := range names {
			name = strings.TrimSuffix(name, ".")
			if strings.Contains(name, ".") {
				return name, nil
			}
		}
	}
	return hostname, nil
}

// Ensure appends the "<ip> <fqdn> <hostname>" record to the hosts file
// at path. A record already mentioning fqdn is left untouched, so the
// call is idempotent.
func Ensure(path, ip, fqdn, hostname string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for line := range strings.Lines(string(content)) {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for _, field := range fields[1:] {
			if field == fqdn {
				return nil
			}
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	record := fmt.Sprintf("%s\t%s %s\n", ip, fqdn, hostname)
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		record = "\n" + record
	}
	if _, err := f.WriteString(record); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}
