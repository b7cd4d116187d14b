// Package relconf prepares the Erlang release configuration of the
// zone components before the panel service starts.
package relconf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Components of a zone installation, in their startup order.
var Components = []string{"cluster_manager", "oz_panel", "oz_worker"}

const (
	generatedConfigPackaged = "/etc/oz_panel/autogenerated.config"
	vmArgsPackaged          = "/etc/oz_panel/autogenerated.vm.args"
	legacyVMArgsPackaged    = "/etc/%s/vm.args"

	generatedConfigSources = "_build/default/rel/oz_panel/etc/autogenerated.config"
	vmArgsSources          = "_build/default/rel/oz_panel/etc/autogenerated.vm.args"
	legacyVMArgsSources    = "../%s/_build/default/rel/%s/etc/vm.args"
)

// Paths resolves configuration file locations. An empty OverrideRoot
// means the packaged installation under /etc; otherwise paths point
// into the pre-built artifact tree.
type Paths struct {
	OverrideRoot string
}

func (p Paths) GeneratedConfig() string {
	if p.OverrideRoot == "" {
		return generatedConfigPackaged
	}
	return filepath.Join(p.OverrideRoot, generatedConfigSources)
}

func (p Paths) VMArgs() string {
	if p.OverrideRoot == "" {
		return vmArgsPackaged
	}
	return filepath.Join(p.OverrideRoot, vmArgsSources)
}

func (p Paths) LegacyVMArgs(component string) string {
	if p.OverrideRoot == "" {
		return fmt.Sprintf(legacyVMArgsPackaged, component)
	}
	return filepath.Join(p.OverrideRoot, fmt.Sprintf(legacyVMArgsSources, component, component))
}

var initializedRx = regexp.MustCompile(`\{config_initialized,\s*true\}`)

// Initialized reports whether the generated config file already marks
// a completed initialization. Unreadable files count as uninitialized.
func Initialized(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return initializedRx.Match(content)
}

// Options are the deployment toggles embedded into the generated
// config. A nil toggle or an empty domain means the operator never set
// the variable and no entry is written, so the panel keeps its own
// default.
type Options struct {
	GenerateTestWebCert *bool
	TestWebCertDomain   string
	TrustTestCA         *bool
}

// WriteGeneratedConfig emits the machine-generated onepanel config.
func WriteGeneratedConfig(path string, opts Options) error {
	var b strings.Builder
	b.WriteString("% MACHINE GENERATED FILE. DO NOT MODIFY.\n")
	b.WriteString("% Use overlay.config for custom configuration.\n\n")
	b.WriteString("[{onepanel, [{config_initialized, true}")

	if opts.GenerateTestWebCert != nil {
		fmt.Fprintf(&b, ",\n{generate_test_web_cert, %t}", *opts.GenerateTestWebCert)
	}
	if opts.TestWebCertDomain != "" {
		fmt.Fprintf(&b, ",\n{test_web_cert_domain, %q}", opts.TestWebCertDomain)
	}
	if opts.TrustTestCA != nil {
		fmt.Fprintf(&b, ",\n{treat_test_ca_as_trusted, %t}", *opts.TrustTestCA)
	}

	b.WriteString("\n]}].")

	return os.WriteFile(path, []byte(b.String()), 0644)
}

var nameRx = regexp.MustCompile(`-name .*`)

// SetNodeName rewrites the -name entry of a vm.args file so the
// Erlang node carries the container's domain-qualified hostname.
func SetNodeName(path, fqdn string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	replaced := nameRx.ReplaceAll(content, []byte("-name onepanel@"+fqdn))
	return os.WriteFile(path, replaced, 0644)
}
