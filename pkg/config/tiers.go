package config

import "fmt"

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// TiersConfig maps the paid routing tiers to provider targets. The local
// tier answers from templates and has no target.
type TiersConfig struct {
	Light RouteTarget `yaml:"light"`
	Heavy RouteTarget `yaml:"heavy"`
}

// Both tiers default to the cheap Gemini model, matching the upstream
// service; the heavy tier still gets the larger token ceiling.
func (t *TiersConfig) applyDefaults() {
	if t.Light.Adapter == "" {
		t.Light = RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"}
	}
	if t.Heavy.Adapter == "" {
		t.Heavy = RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"}
	}
}

var knownAdapters = map[string]bool{
	"google":    true,
	"openai":    true,
	"anthropic": true,
	"deepseek":  true,
	"mock":      true,
}

func (t *TiersConfig) validate() error {
	for name, target := range map[string]RouteTarget{"light": t.Light, "heavy": t.Heavy} {
		if !knownAdapters[target.Adapter] {
			return fmt.Errorf("tier %s: unknown adapter %q", name, target.Adapter)
		}
		if target.Model == "" {
			return fmt.Errorf("tier %s: model is required", name)
		}
	}
	return nil
}
