package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveString(t *testing.T) {
	data := map[string]any{
		"trigger_data": map[string]any{
			"contact_id": "42",
			"deal": map[string]any{
				"name": "Acme renewal",
			},
		},
		"sales_id": "tenant-1",
	}

	t.Run("substitutes a top-level path", func(t *testing.T) {
		result := Resolve("tenant is {{sales_id}}", data)
		assert.Equal(t, "tenant is tenant-1", result)
	})

	t.Run("substitutes a nested dot path", func(t *testing.T) {
		result := Resolve("follow up on {{trigger_data.deal.name}}", data)
		assert.Equal(t, "follow up on Acme renewal", result)
	})

	t.Run("substitutes multiple placeholders in one string", func(t *testing.T) {
		result := Resolve("{{sales_id}}/{{trigger_data.contact_id}}", data)
		assert.Equal(t, "tenant-1/42", result)
	})

	t.Run("missing path is left as literal text", func(t *testing.T) {
		result := Resolve("{{missing.path}}", map[string]any{})
		assert.Equal(t, "{{missing.path}}", result)
	})

	t.Run("partially missing path is left as literal text", func(t *testing.T) {
		result := Resolve("{{trigger_data.deal.missing}}", data)
		assert.Equal(t, "{{trigger_data.deal.missing}}", result)
	})

	t.Run("non-string value is JSON serialized", func(t *testing.T) {
		result := Resolve("deal: {{trigger_data.deal}}", data)
		assert.Equal(t, `deal: {"name":"Acme renewal"}`, result)
	})

	t.Run("malformed placeholder is left alone", func(t *testing.T) {
		result := Resolve("{{not valid}} and {{.leading}}", data)
		assert.Equal(t, "{{not valid}} and {{.leading}}", result)
	})
}

func TestResolveNumber(t *testing.T) {
	data := map[string]any{
		"trigger_data": map[string]any{"contact_id": float64(42)},
	}

	result := Resolve("{{trigger_data.contact_id}}", data)
	assert.Equal(t, "42", result)
}

func TestResolveStructures(t *testing.T) {
	data := map[string]any{"name": "Ada"}

	t.Run("arrays resolve element-wise in order", func(t *testing.T) {
		result := Resolve([]any{"hi {{name}}", "bye {{name}}", float64(7)}, data)
		assert.Equal(t, []any{"hi Ada", "bye Ada", float64(7)}, result)
	})

	t.Run("map values resolve, keys do not", func(t *testing.T) {
		result := Resolve(map[string]any{"{{name}}": "hi {{name}}"}, data)
		assert.Equal(t, map[string]any{"{{name}}": "hi Ada"}, result)
	})

	t.Run("scalars pass through unchanged", func(t *testing.T) {
		assert.Equal(t, true, Resolve(true, data))
		assert.Equal(t, float64(3.5), Resolve(float64(3.5), data))
		assert.Nil(t, Resolve(nil, data))
	})
}

func TestResolveIdempotence(t *testing.T) {
	data := map[string]any{
		"sales_id": "tenant-1",
		"ai_result": map[string]any{
			"summary": "done",
		},
	}

	input := map[string]any{
		"text":    "tenant {{sales_id}}: {{ai_result.summary}} ({{missing}})",
		"numbers": []any{float64(1), "{{ai_result}}"},
	}

	once := Resolve(input, data)
	twice := Resolve(once, data)

	assert.Equal(t, once, twice)
}

func TestResolveConfig(t *testing.T) {
	data := map[string]any{
		"trigger_data": map[string]any{"contact_id": "42"},
	}

	config := map[string]any{
		"action":    "create_task",
		"contactId": "{{trigger_data.contact_id}}",
		"text":      "Follow up",
	}

	resolved := ResolveConfig(config, data)

	assert.Equal(t, "create_task", resolved["action"])
	assert.Equal(t, "42", resolved["contactId"])
	assert.Equal(t, "Follow up", resolved["text"])
}
