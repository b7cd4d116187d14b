package banner_test

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onedata/onezone-launcher/internal/banner"
)

func TestContainerID(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cgroup")
	content := "0::/system.slice/docker-abc123def456.scope/abc123def456\n1:name=x:/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	id, err := banner.ContainerID(path)
	require.NoError(t, err)
	require.Equal(t, "abc123def456", id)
}

func TestContainerIDErrors(t *testing.T) {
	t.Parallel()
	_, err := banner.ContainerID(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "cgroup")
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0644))
	_, err = banner.ContainerID(path)
	require.Error(t, err)
}

func TestInspect(t *testing.T) {
	t.Parallel()
	socket := filepath.Join(t.TempDir(), "docker.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/abc123/json", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"NetworkSettings": {
				"Networks": {"bridge": {"IPAddress": "172.17.0.2"}},
				"Ports": {
					"443/tcp": [{"HostIp": "0.0.0.0", "HostPort": "8443"}],
					"53/udp": null
				}
			}
		}`))
	}))
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)

	details, err := banner.Inspect(t.Context(), socket, "abc123")
	require.NoError(t, err)
	require.Equal(t, "172.17.0.2", details.IP)
	require.Equal(t, []uint16{53, 443}, details.ExposedPorts())
}

func TestInspectNoSocket(t *testing.T) {
	t.Parallel()
	_, err := banner.Inspect(t.Context(), filepath.Join(t.TempDir(), "nope.sock"), "abc")
	require.Error(t, err)
}

func TestDetailsWrite(t *testing.T) {
	t.Parallel()

	t.Run("full", func(t *testing.T) {
		details := banner.Details{
			IP: "172.17.0.2",
			Ports: map[string][]banner.HostBinding{
				"443/tcp": {{HostIP: "0.0.0.0", HostPort: "8443"}},
				"53/udp":  nil,
				"80/tcp":  nil,
			},
		}
		listening := map[uint16]bool{443: true, 80: false}

		var buf bytes.Buffer
		details.Write(&buf, listening)
		out := buf.String()

		require.Contains(t, out, "* IP Address: 172.17.0.2")
		require.Contains(t, out, "0.0.0.0:8443 -> 443/tcp")
		require.Contains(t, out, "80/tcp (not listening)")
		require.Contains(t, out, "53/udp")
		require.NotContains(t, out, "53/udp (not listening)")
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		banner.Details{}.Write(&buf, nil)
		out := buf.String()
		require.Contains(t, out, "* IP Address: -")
		require.Contains(t, out, "* Ports: -")
	})
}
