package hosts_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onedata/onezone-launcher/internal/hosts"
)

func TestEnsure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hosts")
	seed := "127.0.0.1\tlocalhost\n::1\tlocalhost\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	err := hosts.Ensure(path, "172.17.0.2", "node1.zone.example.com", "node1")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), seed))
	require.Contains(t, string(content), "172.17.0.2\tnode1.zone.example.com node1\n")

	// idempotent
	err = hosts.Ensure(path, "172.17.0.2", "node1.zone.example.com", "node1")
	require.NoError(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, again)
}

func TestEnsureCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hosts")

	require.NoError(t, hosts.Ensure(path, "10.0.0.5", "host.domain", "host"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5\thost.domain host\n", string(content))
}

func TestEnsureMissingTrailingNewline(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost"), 0644))

	require.NoError(t, hosts.Ensure(path, "10.0.0.5", "host.domain", "host"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1 localhost\n10.0.0.5\thost.domain host\n", string(content))
}

func TestFQDN(t *testing.T) {
	t.Parallel()
	fqdn, err := hosts.FQDN()
	require.NoError(t, err)
	require.NotEmpty(t, fqdn)
}
