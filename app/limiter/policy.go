package limiter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ActionLimits maps an action name to its admitted request count per window.
type ActionLimits map[string]int

// DefaultActionLimits returns the built-in AI action budget.
func DefaultActionLimits() ActionLimits {
	return ActionLimits{
		"summarize":    20,
		"suggest-tags": 50,
	}
}

type policyFile struct {
	Limits map[string]int `yaml:"limits"`
}

// LoadActionLimits reads per-action limit overrides from a YAML file of the
// form:
//
//	limits:
//	  summarize: 20
//	  suggest-tags: 50
//
// Entries merge over the defaults; an empty path returns the defaults as-is.
func LoadActionLimits(path string) (ActionLimits, error) {
	limits := DefaultActionLimits()
	if path == "" {
		return limits, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}

	var parsed policyFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse limits file: %w", err)
	}

	for action, limit := range parsed.Limits {
		if limit < 0 {
			return nil, fmt.Errorf("limit for %q must be non-negative", action)
		}
		limits[action] = limit
	}

	return limits, nil
}
