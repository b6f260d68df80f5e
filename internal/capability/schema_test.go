package capability

import (
	"testing"

	"github.com/caplink-proto/caplink/pkg/wire"
)

func greetSchema() Schema {
	return NewSchema(String("name", "who to greet"))
}

func TestValidate_acceptsValidArgs(t *testing.T) {
	s := NewSchema(
		String("name", ""),
		Integer("count", ""),
		Optional(Param{Name: "loud", Type: TypeBoolean}),
	)
	args := map[string]any{
		"name":  "Ford",
		"count": float64(3), // JSON numbers decode as float64
	}
	if err := s.Validate(args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_missingRequired(t *testing.T) {
	err := greetSchema().Validate(map[string]any{})
	if !wire.IsKind(err, wire.ErrInvalidArguments) {
		t.Fatalf("expected invalid_arguments, got %v", err)
	}
}

func TestValidate_unknownParameter(t *testing.T) {
	err := greetSchema().Validate(map[string]any{"name": "Ford", "extra": 1})
	if !wire.IsKind(err, wire.ErrInvalidArguments) {
		t.Fatalf("expected invalid_arguments, got %v", err)
	}
}

func TestValidate_wrongShapes(t *testing.T) {
	cases := []struct {
		name  string
		param Param
		value any
	}{
		{"string gets number", String("p", ""), float64(1)},
		{"integer gets string", Integer("p", ""), "7"},
		{"integer gets fraction", Integer("p", ""), 2.5},
		{"boolean gets string", Param{Name: "p", Type: TypeBoolean, Required: true}, "true"},
		{"array gets object", Param{Name: "p", Type: TypeArray, Required: true}, map[string]any{}},
		{"object gets array", Param{Name: "p", Type: TypeObject, Required: true}, []any{}},
		{"null value", String("p", ""), nil},
	}
	for _, tc := range cases {
		s := NewSchema(tc.param)
		err := s.Validate(map[string]any{"p": tc.value})
		if !wire.IsKind(err, wire.ErrInvalidArguments) {
			t.Errorf("%s: expected invalid_arguments, got %v", tc.name, err)
		}
	}
}

func TestValidate_optionalMayBeAbsent(t *testing.T) {
	s := NewSchema(Optional(String("focus", "")))
	if err := s.Validate(map[string]any{}); err != nil {
		t.Fatalf("optional parameter must not be required: %v", err)
	}
}

func TestValidate_integerAcceptsWholeFloat(t *testing.T) {
	s := NewSchema(Integer("n", ""))
	if err := s.Validate(map[string]any{"n": float64(42)}); err != nil {
		t.Fatalf("whole float64 must validate as integer: %v", err)
	}
}

func TestDescriptors_preserveOrderAndFlags(t *testing.T) {
	s := NewSchema(
		String("language", ""),
		String("code", ""),
		Optional(String("focus", "")),
	)
	d := s.Descriptors()
	if len(d) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(d))
	}
	if d[0].Name != "language" || d[1].Name != "code" || d[2].Name != "focus" {
		t.Errorf("descriptor order: %v", d)
	}
	if !d[0].Required || d[2].Required {
		t.Error("required flags not preserved")
	}
	if d[0].Type != "string" {
		t.Errorf("type = %q, want string", d[0].Type)
	}
}

func TestArgumentExtractors(t *testing.T) {
	args := map[string]any{
		"n":        float64(7),
		"s":        "text",
		"flag":     true,
		"sections": []any{"intro", "body", 3},
	}
	if Int(args, "n") != 7 {
		t.Error("Int failed on float64")
	}
	if Str(args, "s") != "text" {
		t.Error("Str failed")
	}
	if StrOr(args, "missing", "fallback") != "fallback" {
		t.Error("StrOr fallback failed")
	}
	if !Bool(args, "flag", false) || !Bool(args, "missing", true) {
		t.Error("Bool failed")
	}
	got := Strings(args, "sections")
	if len(got) != 2 || got[0] != "intro" || got[1] != "body" {
		t.Errorf("Strings = %v, want non-strings skipped", got)
	}
}
