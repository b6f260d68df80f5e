package capability

import (
	"math"

	"github.com/caplink-proto/caplink/pkg/wire"
)

// ParamType is the JSON value shape a schema parameter accepts.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param is one named, typed parameter of an action or prompt schema.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// Schema is the ordered parameter list validated before a handler runs.
// Order is preserved for display; validation is order-independent.
type Schema struct {
	Params []Param
}

// String is shorthand for a required string parameter.
func String(name, description string) Param {
	return Param{Name: name, Type: TypeString, Required: true, Description: description}
}

// Integer is shorthand for a required integer parameter.
func Integer(name, description string) Param {
	return Param{Name: name, Type: TypeInteger, Required: true, Description: description}
}

// Optional returns a copy of p with the required flag cleared.
func Optional(p Param) Param {
	p.Required = false
	return p
}

// NewSchema builds a schema from its parameters in declaration order.
func NewSchema(params ...Param) Schema {
	return Schema{Params: params}
}

// Validate checks an argument mapping against the schema: every required
// parameter present, no unknown parameters, every value of the declared
// JSON shape. Failures are invalid_arguments protocol errors.
func (s Schema) Validate(args map[string]any) error {
	byName := make(map[string]Param, len(s.Params))
	for _, p := range s.Params {
		byName[p.Name] = p
		if p.Required {
			if _, ok := args[p.Name]; !ok {
				return wire.Errorf(wire.ErrInvalidArguments, "missing required parameter %q", p.Name)
			}
		}
	}

	for name, value := range args {
		p, ok := byName[name]
		if !ok {
			return wire.Errorf(wire.ErrInvalidArguments, "unknown parameter %q", name)
		}
		if err := checkType(p, value); err != nil {
			return err
		}
	}
	return nil
}

// Descriptors exports the schema in the wire parameter shape.
func (s Schema) Descriptors() []wire.ParamDescriptor {
	out := make([]wire.ParamDescriptor, 0, len(s.Params))
	for _, p := range s.Params {
		out = append(out, wire.ParamDescriptor{
			Name:        p.Name,
			Type:        string(p.Type),
			Required:    p.Required,
			Description: p.Description,
		})
	}
	return out
}

// checkType verifies that a decoded JSON value has the declared shape.
// JSON numbers arrive as float64; integers accept whole floats and the
// native int types a Go caller may pass directly.
func checkType(p Param, value any) error {
	if value == nil {
		return wire.Errorf(wire.ErrInvalidArguments, "parameter %q must not be null", p.Name)
	}
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return typeError(p, value)
		}
	case TypeInteger:
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) {
				return wire.Errorf(wire.ErrInvalidArguments, "parameter %q must be a whole number, got %v", p.Name, v)
			}
		case int, int32, int64:
		default:
			return typeError(p, value)
		}
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return typeError(p, value)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeError(p, value)
		}
	case TypeArray:
		if _, ok := value.([]any); !ok {
			return typeError(p, value)
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return typeError(p, value)
		}
	default:
		return wire.Errorf(wire.ErrInvalidArguments, "parameter %q has unsupported type %q", p.Name, p.Type)
	}
	return nil
}

func typeError(p Param, value any) error {
	return wire.Errorf(wire.ErrInvalidArguments, "parameter %q must be a %s, got %T", p.Name, p.Type, value)
}

// Int extracts an integer argument after validation. JSON decoding
// delivers numbers as float64, so handlers use this instead of a type
// assertion.
func Int(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Str extracts a string argument after validation.
func Str(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// StrOr extracts an optional string argument, falling back to def.
func StrOr(args map[string]any, name, def string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return def
}

// Bool extracts a boolean argument, defaulting to def when absent.
func Bool(args map[string]any, name string, def bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return def
}

// Strings extracts an array-of-strings argument after validation.
// Non-string elements are skipped.
func Strings(args map[string]any, name string) []string {
	raw, _ := args[name].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
