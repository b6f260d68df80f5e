// Package uritemplate implements the URI-template scheme used to address
// caplink resources.
//
// Template format: scheme://segment/segment/...
//
// Examples:
//
//	config://app                     (all-literal, matches exactly one URI)
//	user://{user_id}                 (one placeholder)
//	weather://{city}/{date}          (two placeholders)
//
// Each segment is either a literal string or a {name} placeholder. A
// placeholder binds exactly one URI segment; there is no cross-segment
// wildcard matching. The package is pure: parsing, matching, and
// resolving have no side effects and no dependency on the registry.
package uritemplate

import (
	"fmt"
	"strings"
)

// segment is one piece of a template: a literal, or a named placeholder.
type segment struct {
	literal string
	param   string // non-empty means placeholder
}

func (s segment) isParam() bool { return s.param != "" }

// Template is a parsed URI template.
type Template struct {
	scheme   string
	segments []segment
	raw      string
}

// Parse parses a URI template string.
//
// The expected structure is:
//
//	scheme://{segment}/{segment}/...
//
// where each segment is a literal or a {name} placeholder.
func Parse(raw string) (*Template, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("template %q: missing scheme separator \"://\"", raw)
	}
	if err := validateScheme(scheme); err != nil {
		return nil, fmt.Errorf("template %q: %w", raw, err)
	}
	if rest == "" {
		return nil, fmt.Errorf("template %q: empty path after scheme", raw)
	}

	parts := strings.Split(rest, "/")
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]bool)
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", raw, err)
		}
		if seg.isParam() {
			if seen[seg.param] {
				return nil, fmt.Errorf("template %q: duplicate parameter {%s}", raw, seg.param)
			}
			seen[seg.param] = true
		}
		segments = append(segments, seg)
	}

	return &Template{scheme: scheme, segments: segments, raw: raw}, nil
}

// MustParse parses a template and panics on error. Useful in tests and
// registration blocks where the template is a compile-time constant.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template exactly as it was written.
func (t *Template) String() string { return t.raw }

// Params returns the placeholder names in left-to-right order.
func (t *Template) Params() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.isParam() {
			names = append(names, seg.param)
		}
	}
	return names
}

// literalPrefix counts the literal segments before the first placeholder.
// An all-literal template scores its full segment count. This is the
// specificity measure used by Resolve's tie-break.
func (t *Template) literalPrefix() int {
	for i, seg := range t.segments {
		if seg.isParam() {
			return i
		}
	}
	return len(t.segments)
}

// Match tests a concrete URI against the template. On success it returns
// the placeholder bindings (empty map for all-literal templates).
//
// A URI matches when its scheme equals the template's, its segment count
// equals the template's, and every literal template segment equals the
// corresponding URI segment exactly. Placeholder segments bind the
// corresponding URI segment value, which must be non-empty.
func (t *Template) Match(uri string) (map[string]string, bool) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme != t.scheme {
		return nil, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range t.segments {
		if seg.isParam() {
			if parts[i] == "" {
				return nil, false
			}
			params[seg.param] = parts[i]
			continue
		}
		if parts[i] != seg.literal {
			return nil, false
		}
	}
	return params, true
}

// parseSegment classifies one template segment as literal or placeholder.
func parseSegment(part string) (segment, error) {
	if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
		name := part[1 : len(part)-1]
		if name == "" {
			return segment{}, fmt.Errorf("empty placeholder name in segment %q", part)
		}
		if strings.ContainsAny(name, "{}/") {
			return segment{}, fmt.Errorf("invalid placeholder name %q", name)
		}
		return segment{param: name}, nil
	}
	if part == "" {
		return segment{}, fmt.Errorf("empty literal segment")
	}
	if strings.ContainsAny(part, "{}") {
		return segment{}, fmt.Errorf("segment %q mixes literal text and braces", part)
	}
	return segment{literal: part}, nil
}

// validateScheme checks that a scheme is non-empty and brace-free.
func validateScheme(scheme string) error {
	if scheme == "" {
		return fmt.Errorf("scheme must not be empty")
	}
	if strings.ContainsAny(scheme, "{}/ ") {
		return fmt.Errorf("scheme %q contains invalid characters", scheme)
	}
	return nil
}
