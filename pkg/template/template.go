// Package template substitutes {{path}} placeholders in node configuration
// using the accumulated execution context. Resolution is pure and total:
// malformed or unresolvable placeholders degrade to their literal text, they
// never fail a run.
package template

import (
	"encoding/json"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*)\}\}`)

// Resolve walks value and replaces every {{identifier(.identifier)*}}
// occurrence in string leaves with the value found by following the dot path
// through data. Arrays and objects are resolved element-wise; map keys are
// never templated; non-string scalars are returned unchanged.
func Resolve(value any, data map[string]any) any {
	switch typed := value.(type) {
	case string:
		return resolveString(typed, data)
	case []any:
		resolved := make([]any, len(typed))
		for i, item := range typed {
			resolved[i] = Resolve(item, data)
		}

		return resolved
	case map[string]any:
		resolved := make(map[string]any, len(typed))
		for key, item := range typed {
			resolved[key] = Resolve(item, data)
		}

		return resolved
	default:
		return value
	}
}

// ResolveConfig resolves every value of a node configuration map.
func ResolveConfig(config map[string]any, data map[string]any) map[string]any {
	resolved := make(map[string]any, len(config))
	for key, value := range config {
		resolved[key] = Resolve(value, data)
	}

	return resolved
}

func resolveString(input string, data map[string]any) any {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		value, found := lookupPath(data, path)
		if !found {
			return match
		}

		if str, ok := value.(string); ok {
			return str
		}

		serialized, err := json.Marshal(value)
		if err != nil {
			return match
		}

		return string(serialized)
	})
}

func lookupPath(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
