package config

import (
	"fmt"
	"strings"
)

// OverridePrefix starts every --config key.
const OverridePrefix = "seu."

// parseCLIConfigOverrides parses --config=seu.key=value format.
// Returns a map suitable for applyConfig().
func parseCLIConfigOverrides(overrides []string) (map[string]any, error) {
	result := make(map[string]any)
	keyCount := make(map[string]int)

	for _, override := range overrides {
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config override: %q, expected format: seu.key=value (note: use = not space)", override)
		}

		fullKey := parts[0]
		value := parts[1]

		if !strings.HasPrefix(fullKey, OverridePrefix) {
			return nil, fmt.Errorf("config override key must start with '%s': %q", OverridePrefix, fullKey)
		}

		key := strings.TrimPrefix(fullKey, OverridePrefix)
		if key == "" {
			return nil, fmt.Errorf("empty config key in override: %q", override)
		}

		// repeated keys build a list, as for rm_blacklist
		keyCount[key]++
		switch keyCount[key] {
		case 1:
			result[key] = value
		case 2:
			result[key] = []any{result[key].(string), value}
		default:
			result[key] = append(result[key].([]any), value)
		}
	}

	return result, nil
}
