package banner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DockerSocket is the default location of the docker daemon socket
// mounted into demo containers.
const DockerSocket = "/var/run/docker.sock"

// HostBinding is one published port of the container.
type HostBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

type inspectInfo struct {
	NetworkSettings struct {
		Networks map[string]struct {
			IPAddress string `json:"IPAddress"`
		} `json:"Networks"`
		Ports map[string][]HostBinding `json:"Ports"`
	} `json:"NetworkSettings"`
}

// Details describe the container as seen by the docker daemon.
type Details struct {
	IP    string
	Ports map[string][]HostBinding
}

// ContainerID extracts the container identifier from the cgroup file,
// conventionally /proc/self/cgroup.
func ContainerID(cgroupPath string) (string, error) {
	content, err := os.ReadFile(cgroupPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", cgroupPath, err)
	}
	line, _, _ := strings.Cut(string(content), "\n")
	idx := strings.LastIndex(line, "/")
	if idx < 0 || idx == len(line)-1 {
		return "", fmt.Errorf("no container id in cgroup line %q", line)
	}
	return line[idx+1:], nil
}

// Inspect queries the docker daemon over its unix socket for the
// container's network settings. Errors are expected when the socket is
// not mounted; callers degrade to partial details then.
func Inspect(ctx context.Context, socketPath, containerID string) (Details, error) {
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}

	url := "http://docker/containers/" + containerID + "/json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Details{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Details{}, fmt.Errorf("querying docker daemon: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Details{}, fmt.Errorf("docker daemon answered %d", resp.StatusCode)
	}

	var info inspectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Details{}, fmt.Errorf("decoding container info: %w", err)
	}

	details := Details{Ports: info.NetworkSettings.Ports}
	for _, network := range info.NetworkSettings.Networks {
		if network.IPAddress != "" {
			details.IP = network.IPAddress
			break
		}
	}
	return details, nil
}

// ExposedPorts returns the numeric container ports from the inspect
// result, for cross-checking against actual listeners.
func (d Details) ExposedPorts() []uint16 {
	var ret []uint16
	for containerPort := range d.Ports {
		numStr, _, _ := strings.Cut(containerPort, "/")
		num, err := strconv.ParseUint(numStr, 10, 16)
		if err != nil {
			continue
		}
		ret = append(ret, uint16(num))
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Write renders the details block. listening, when non-nil, flags
// exposed ports that have no local listener yet.
func (d Details) Write(w io.Writer, listening map[uint16]bool) {
	fmt.Fprintln(w, "\nContainer details:")

	ip := d.IP
	if ip == "" {
		ip = "-"
	}
	fmt.Fprintf(w, "* IP Address: %s\n", ip)

	lines := d.portLines(listening)
	if len(lines) == 0 {
		fmt.Fprintln(w, "* Ports: -")
		return
	}
	fmt.Fprintf(w, "* Ports: %s\n", strings.Join(lines, "\n         "))
}

func (d Details) portLines(listening map[uint16]bool) []string {
	containerPorts := make([]string, 0, len(d.Ports))
	for p := range d.Ports {
		containerPorts = append(containerPorts, p)
	}
	sort.Strings(containerPorts)

	var lines []string
	for _, containerPort := range containerPorts {
		suffix := ""
		if listening != nil {
			numStr, _, _ := strings.Cut(containerPort, "/")
			if num, err := strconv.ParseUint(numStr, 10, 16); err == nil {
				if up, known := listening[uint16(num)]; known && !up {
					suffix = " (not listening)"
				}
			}
		}

		bindings := d.Ports[containerPort]
		if len(bindings) == 0 {
			lines = append(lines, containerPort+suffix)
			continue
		}
		for _, b := range bindings {
			lines = append(lines, fmt.Sprintf("%s:%s -> %s%s",
				b.HostIP, b.HostPort, containerPort, suffix))
		}
	}
	return lines
}
