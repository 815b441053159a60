package util

import (
	"fmt"
)

// ValidationError represents a single parameter validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure found during a single validation
// pass so the caller can report all of them at once (the tool registry joins
// them with "; ").
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	s := v[0].Error()
	for _, e := range v[1:] {
		s += "; " + e.Error()
	}
	return s
}

// ValidateParameters performs a recursive structural check of args against a
// minimal JSON-Schema-shaped map: {string, integer, number, boolean, array,
// object} with enum/minimum/maximum/minLength/maxLength/required/properties/
// items support. Additional (undeclared) properties are tolerated. Returns
// ValidationErrors (possibly several) or nil.
func ValidateParameters(args map[string]any, schema map[string]any) error {
	errs := validateObject("", args, schema)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateObject(path string, value map[string]any, schema map[string]any) ValidationErrors {
	var errs ValidationErrors

	switch req := schema["required"].(type) {
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				if _, exists := value[name]; !exists {
					errs = append(errs, &ValidationError{Field: joinPath(path, name), Message: "required field is missing"})
				}
			}
		}
	case []string:
		for _, name := range req {
			if _, exists := value[name]; !exists {
				errs = append(errs, &ValidationError{Field: joinPath(path, name), Message: "required field is missing"})
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, raw := range value {
		propSchema, exists := properties[name]
		if !exists {
			continue // additional properties tolerated
		}
		propMap, ok := propSchema.(map[string]any)
		if !ok {
			continue
		}
		errs = append(errs, validateValue(joinPath(path, name), raw, propMap)...)
	}

	return errs
}

func validateValue(path string, value any, schema map[string]any) ValidationErrors {
	if value == nil {
		return nil
	}

	expectedType, _ := schema["type"].(string)

	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 && !containsAny(enum, value) {
		return ValidationErrors{{Field: path, Value: value, Message: "value is not one of the allowed enum values"}}
	}

	var errs ValidationErrors

	switch expectedType {
	case "string":
		s, ok := value.(string)
		if !ok {
			return typeErr(path, value, expectedType)
		}
		if min, ok := asInt(schema["minLength"]); ok && len(s) < min {
			errs = append(errs, &ValidationError{Field: path, Value: value, Message: fmt.Sprintf("length below minLength %d", min)})
		}
		if max, ok := asInt(schema["maxLength"]); ok && len(s) > max {
			errs = append(errs, &ValidationError{Field: path, Value: value, Message: fmt.Sprintf("length above maxLength %d", max)})
		}
	case "integer":
		n, ok := asFloat(value)
		if !ok || n != float64(int64(n)) {
			return typeErr(path, value, expectedType)
		}
		errs = append(errs, validateRange(path, value, n, schema)...)
	case "number":
		n, ok := asFloat(value)
		if !ok {
			return typeErr(path, value, expectedType)
		}
		errs = append(errs, validateRange(path, value, n, schema)...)
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeErr(path, value, expectedType)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return typeErr(path, value, expectedType)
		}
		if itemSchema, ok := schema["items"].(map[string]any); ok {
			for i, item := range arr {
				errs = append(errs, validateValue(fmt.Sprintf("%s[%d]", path, i), item, itemSchema)...)
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return typeErr(path, value, expectedType)
		}
		errs = append(errs, validateObject(path, obj, schema)...)
	default:
		// Untyped schema entry: accept anything.
	}

	return errs
}

func validateRange(path string, raw any, n float64, schema map[string]any) ValidationErrors {
	var errs ValidationErrors
	if min, ok := asFloat(schema["minimum"]); ok && n < min {
		errs = append(errs, &ValidationError{Field: path, Value: raw, Message: fmt.Sprintf("value below minimum %v", min)})
	}
	if max, ok := asFloat(schema["maximum"]); ok && n > max {
		errs = append(errs, &ValidationError{Field: path, Value: raw, Message: fmt.Sprintf("value above maximum %v", max)})
	}
	return errs
}

func typeErr(path string, value any, expected string) ValidationErrors {
	return ValidationErrors{{Field: path, Value: value, Message: fmt.Sprintf("expected type %s, got %T", expected, value)}}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func containsAny(haystack []any, needle any) bool {
	for _, h := range haystack {
		if fmt.Sprintf("%v", h) == fmt.Sprintf("%v", needle) {
			return true
		}
	}
	return false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
