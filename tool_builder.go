package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// FunctionDefinitionFromType derives a function definition whose parameter
// schema is inferred from the struct type T.
//
// Supported struct tags:
//   - json:"name"           field name; "-" skips the field
//   - json:",omitempty"     marks the field optional (pointers are optional too)
//   - description:"..."     property description
//   - enum:"a,b,c"          allowed string values
//
// Example:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" description:"City name"`
//	    Unit     string `json:"unit,omitempty" enum:"celsius,fahrenheit"`
//	}
//
//	def, err := sdk.FunctionDefinitionFromType[WeatherArgs]("GetWeather", "Current weather for a city")
func FunctionDefinitionFromType[T any](name, description string) (FunctionDefinition, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return FunctionDefinition{}, ConfigError{Reason: fmt.Sprintf("cannot infer parameters for %q from an interface type", name)}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return FunctionDefinition{}, ConfigError{Reason: fmt.Sprintf("parameters for %q must be a struct, got %s", name, t.Kind())}
	}
	params, err := json.Marshal(schemaForType(t, map[reflect.Type]bool{}))
	if err != nil {
		return FunctionDefinition{}, err
	}
	def := FunctionDefinition{Name: name, Description: description, Parameters: params}
	if err := def.Validate(); err != nil {
		return FunctionDefinition{}, err
	}
	return def, nil
}

// RegisterTyped registers a handler whose arguments decode into T. The
// parameter schema is inferred from T, and T's Validate method runs when it
// implements Validator.
//
// Example:
//
//	err := sdk.RegisterTyped(registry, "GetWeather", "Current weather for a city",
//	    func(ctx context.Context, args WeatherArgs) (any, error) {
//	        return lookup(ctx, args.Location)
//	    })
func RegisterTyped[T any](r *ToolRegistry, name, description string, handler func(ctx context.Context, args T) (any, error)) error {
	if handler == nil {
		return ConfigError{Reason: fmt.Sprintf("handler for %q is nil", name)}
	}
	def, err := FunctionDefinitionFromType[T](name, description)
	if err != nil {
		return err
	}
	_, err = r.RegisterFunction(def, func(ctx context.Context, call ToolCall) (any, error) {
		var args T
		if err := ParseAndValidateToolArgs(call, &args); err != nil {
			return nil, err
		}
		return handler(ctx, args)
	})
	return err
}

func schemaForType(t reflect.Type, seen map[reflect.Type]bool) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaForType(t.Elem(), seen)}
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return map[string]any{"type": "object", "additionalProperties": schemaForType(t.Elem(), seen)}
		}
		return map[string]any{"type": "object"}
	case reflect.Struct:
		if seen[t] {
			return map[string]any{}
		}
		seen[t] = true
		defer delete(seen, t)
		return structSchema(t, seen)
	default:
		return map[string]any{}
	}
}

func structSchema(t reflect.Type, seen map[reflect.Type]bool) map[string]any {
	props := map[string]any{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		prop := schemaForType(field.Type, seen)
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			values := strings.Split(enum, ",")
			for j := range values {
				values[j] = strings.TrimSpace(values[j])
			}
			prop["enum"] = values
		}
		props[name] = prop
		if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
