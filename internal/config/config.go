package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Log levels accepted in ONEPANEL_LOG_LEVEL. LogNone disables the
// component log output entirely.
const (
	LogNone  = "none"
	LogDebug = "debug"
	LogInfo  = "info"
	LogError = "error"
)

var logLevels = map[string]struct{}{
	LogNone:  {},
	LogDebug: {},
	LogInfo:  {},
	LogError: {},
}

// Config is the launcher configuration. It is built once from the
// process environment and never mutated afterwards; components receive
// it by value.
type Config struct {
	// Onepanel passthrough toggles.
	DebugMode           bool   `mapstructure:"debug_mode"`
	BatchMode           bool   `mapstructure:"batch_mode"`
	LogLevel            string `mapstructure:"log_level"`
	EmergencyPassphrase string `mapstructure:"emergency_passphrase"`
	GeneratedCertDomain string `mapstructure:"generated_cert_domain"`

	// Cert toggles stay nil when their variable is absent, only set
	// ones are forwarded into the generated config.
	GenerateTestWebCert *bool `mapstructure:"generate_test_web_cert"`
	TrustTestCA         *bool `mapstructure:"trust_test_ca"`

	// Raw YAML with the zone deployment used in batch mode.
	ZoneConfig string `mapstructure:"zone_config"`

	// Root of a pre-built onepanel artifact. Empty means the packaged
	// installation under /etc is used.
	OverrideRoot string `mapstructure:"override_root"`

	// Launcher knobs.
	PanelURL     string        `mapstructure:"panel_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts uint          `mapstructure:"poll_attempts"`
	ReadyFile    string        `mapstructure:"ready_file"`
}

// env name -> config key
var bindings = map[string]string{
	"debug_mode":             "ONEPANEL_DEBUG_MODE",
	"batch_mode":             "ONEPANEL_BATCH_MODE",
	"log_level":              "ONEPANEL_LOG_LEVEL",
	"emergency_passphrase":   "ONEPANEL_EMERGENCY_PASSPHRASE",
	"generate_test_web_cert": "ONEPANEL_GENERATE_TEST_WEB_CERT",
	"generated_cert_domain":  "ONEPANEL_GENERATED_CERT_DOMAIN",
	"trust_test_ca":          "ONEPANEL_TRUST_TEST_CA",
	"zone_config":            "ONEZONE_CONFIG",
	"override_root":          "ONEPANEL_OVERRIDE",
	"panel_url":              "ONEZONE_PANEL_URL",
	"poll_interval":          "ONEZONE_POLL_INTERVAL",
	"poll_attempts":          "ONEZONE_POLL_ATTEMPTS",
	"ready_file":             "ONEZONE_READY_FILE",
}

// FromEnv reads the launcher configuration from environment variables.
func FromEnv() (Config, error) {
	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	v.SetDefault("log_level", LogInfo)
	v.SetDefault("panel_url", "https://127.0.0.1:9443")
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("poll_attempts", 120)
	v.SetDefault("ready_file", "/root/service-ready.lock")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return Config{}, fmt.Errorf("unsupported log level %q", cfg.LogLevel)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.PollAttempts == 0 {
		return Config{}, fmt.Errorf("poll attempts must be positive")
	}
	return cfg, nil
}
