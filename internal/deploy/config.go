package deploy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// BatchConfig parses the raw deployment description from the
// environment. The interactiveDeployment mark is inserted unless the
// operator provided one, so the panel treats the request as a batch
// deployment.
func BatchConfig(raw string) (map[string]any, error) {
	var cfg map[string]any
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parsing zone configuration: %w", err)
	}
	if cfg == nil {
		return map[string]any{}, nil
	}

	onepanel, ok := cfg["onepanel"].(map[string]any)
	if !ok {
		onepanel = map[string]any{}
	}
	if _, ok := onepanel["interactiveDeployment"]; !ok {
		onepanel["interactiveDeployment"] = false
		cfg["onepanel"] = onepanel
	}
	return cfg, nil
}
