package uritemplate

// A Match is the outcome of resolving a concrete URI against a template
// set: the winning template's index in the candidate slice, the template
// itself, and the extracted parameter bindings.
type Match struct {
	Index    int
	Template *Template
	Params   map[string]string
}

// Resolve finds the template matching uri among candidates, which must be
// given in registration order.
//
// When several templates match, the most specific wins: the one with more
// literal segments before its first placeholder. Ties fall back to the
// earliest-registered candidate. This makes resolution deterministic for
// any overlapping template set: `a://fixed` always beats `a://{x}` for
// the URI `a://fixed`.
//
// No match returns ok=false. Resolution is idempotent: the same URI
// against the same candidate slice yields the same Match every time.
func Resolve(uri string, candidates []*Template) (Match, bool) {
	best := Match{Index: -1}
	bestPrefix := -1

	for i, t := range candidates {
		params, ok := t.Match(uri)
		if !ok {
			continue
		}
		if prefix := t.literalPrefix(); prefix > bestPrefix {
			best = Match{Index: i, Template: t, Params: params}
			bestPrefix = prefix
		}
	}

	if best.Index < 0 {
		return Match{}, false
	}
	return best, true
}
