package relconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onedata/onezone-launcher/internal/relconf"
)

func TestPaths(t *testing.T) {
	t.Parallel()

	t.Run("packaged", func(t *testing.T) {
		p := relconf.Paths{}
		require.Equal(t, "/etc/oz_panel/autogenerated.config", p.GeneratedConfig())
		require.Equal(t, "/etc/oz_panel/autogenerated.vm.args", p.VMArgs())
		require.Equal(t, "/etc/cluster_manager/vm.args", p.LegacyVMArgs("cluster_manager"))
	})

	t.Run("sources override", func(t *testing.T) {
		p := relconf.Paths{OverrideRoot: "/opt/onepanel"}
		require.Equal(t,
			"/opt/onepanel/_build/default/rel/oz_panel/etc/autogenerated.config",
			p.GeneratedConfig())
		require.Equal(t,
			"/opt/oz_worker/_build/default/rel/oz_worker/etc/vm.args",
			p.LegacyVMArgs("oz_worker"))
	})
}

func TestGeneratedConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "autogenerated.config")

	require.False(t, relconf.Initialized(path))

	yes := true
	opts := relconf.Options{
		GenerateTestWebCert: &yes,
		TestWebCertDomain:   "zone.example.com",
		TrustTestCA:         &yes,
	}
	require.NoError(t, relconf.WriteGeneratedConfig(path, opts))
	require.True(t, relconf.Initialized(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "{config_initialized, true}")
	require.Contains(t, string(content), "{generate_test_web_cert, true}")
	require.Contains(t, string(content), `{test_web_cert_domain, "zone.example.com"}`)
	require.Contains(t, string(content), "{treat_test_ca_as_trusted, true}")
}

func TestGeneratedConfigOmitsUnsetToggles(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "autogenerated.config")

	require.NoError(t, relconf.WriteGeneratedConfig(path, relconf.Options{}))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "{config_initialized, true}")
	require.NotContains(t, string(content), "generate_test_web_cert")
	require.NotContains(t, string(content), "test_web_cert_domain")
	require.NotContains(t, string(content), "treat_test_ca_as_trusted")
}

func TestGeneratedConfigExplicitFalse(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "autogenerated.config")

	no := false
	opts := relconf.Options{GenerateTestWebCert: &no, TrustTestCA: &no}
	require.NoError(t, relconf.WriteGeneratedConfig(path, opts))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "{generate_test_web_cert, false}")
	require.Contains(t, string(content), "{treat_test_ca_as_trusted, false}")
}

func TestSetNodeName(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "autogenerated.vm.args")
	original := "## Name of the node\n-name onepanel@localhost\n\n-setcookie secret\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0644))

	require.NoError(t, relconf.SetNodeName(path, "node1.zone.example.com"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "-name onepanel@node1.zone.example.com")
	require.NotContains(t, string(content), "-name onepanel@localhost")
	require.Contains(t, string(content), "-setcookie secret")
}

func TestSetNodeNameMissingFile(t *testing.T) {
	t.Parallel()
	err := relconf.SetNodeName(filepath.Join(t.TempDir(), "nope"), "fqdn")
	require.Error(t, err)
}

func TestUpgradeLegacyVMArgs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	// mimic the sources layout for two components, one with a cookie
	// and one without
	write := func(component, content string) string {
		dir := filepath.Join(root, "up", component,
			"_build/default/rel", component, "etc")
		require.NoError(t, os.MkdirAll(dir, 0755))
		path := filepath.Join(dir, "vm.args")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	cm := write("cluster_manager", "-name cm@host1\n-setcookie oldcookie\n")
	ow := write("oz_worker", "-name worker@host1\n")

	paths := relconf.Paths{OverrideRoot: filepath.Join(root, "up", "oz_panel")}
	require.NoError(t, relconf.UpgradeLegacyVMArgs(paths))

	// legacy files are gone
	_, err := os.Stat(cm)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(ow)
	require.True(t, os.IsNotExist(err))

	cmOut, err := os.ReadFile(filepath.Join(filepath.Dir(cm), "autogenerated.vm.args"))
	require.NoError(t, err)
	require.Contains(t, string(cmOut), "-name cm@host1")
	require.Contains(t, string(cmOut), "-setcookie oldcookie")

	owOut, err := os.ReadFile(filepath.Join(filepath.Dir(ow), "autogenerated.vm.args"))
	require.NoError(t, err)
	require.Contains(t, string(owOut), "-name worker@host1")
	// a fresh cookie was generated
	require.Regexp(t, `-setcookie [0-9a-f]{32}`, string(owOut))
}

func TestNewCookie(t *testing.T) {
	t.Parallel()
	a, b := relconf.NewCookie(), relconf.NewCookie()
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "-")
}
