package toolhost

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ToolSpec is the serializable description of one callable tool. JSONSchema
// must encode a JSON Schema object describing the arguments.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	JSONSchema  json.RawMessage `json:"json_schema"`
}

// EncodeTools converts tool specs into the OpenAI-compatible tools array so
// LLM hosts can pass the surface straight to a chat completion request.
func EncodeTools(specs []ToolSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: "function",
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.JSONSchema,
			},
		})
	}
	return out
}

// validateArgs checks a decoded JSON value against a restricted JSON Schema
// subset: type (object, array, string, integer, number, boolean), properties,
// required, additionalProperties (boolean), and items (single schema).
// Returns the first mismatch found, nil when the value conforms.
func validateArgs(value any, schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil {
		return err
	}
	typ, _ := s["type"].(string)
	switch typ {
	case "object", "":
		return validateObject(value, s)
	case "array":
		return validateArray(value, s)
	case "string":
		if _, ok := value.(string); !ok {
			return errors.New("expected string")
		}
	case "integer":
		f, ok := asNumber(value)
		if !ok || f != float64(int64(f)) {
			return errors.New("expected integer")
		}
	case "number":
		if _, ok := asNumber(value); !ok {
			return errors.New("expected number")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return errors.New("expected boolean")
		}
	}
	return nil
}

func validateObject(value any, s map[string]any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return errors.New("expected object")
	}
	if req, ok := s["required"].([]any); ok {
		for _, r := range req {
			name, _ := r.(string)
			if _, present := obj[name]; name != "" && !present {
				return errors.New("missing required field: " + name)
			}
		}
	}
	props, _ := s["properties"].(map[string]any)
	for key, val := range obj {
		if sub, ok := props[key]; ok {
			b, _ := json.Marshal(sub)
			if err := validateArgs(val, b); err != nil {
				return fmt.Errorf("property %s: %w", key, err)
			}
			continue
		}
		if extra, ok := s["additionalProperties"].(bool); ok && !extra {
			return errors.New("additional property not allowed: " + key)
		}
	}
	return nil
}

func validateArray(value any, s map[string]any) error {
	arr, ok := value.([]any)
	if !ok {
		return errors.New("expected array")
	}
	items, ok := s["items"]
	if !ok {
		return nil
	}
	b, _ := json.Marshal(items)
	for i, elem := range arr {
		if err := validateArgs(elem, b); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
