package capability

import (
	"github.com/caplink-proto/caplink/pkg/uritemplate"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// Registry is the owning store of all capabilities for one server
// instance. It is an explicit object: construct it with New, register
// everything at process start, then hand it to the server. There is no
// package-level singleton.
//
// Registration order is preserved: it determines list order and the
// resource tie-break, nothing else. The registry is not safe for
// concurrent registration; registration must complete before any session
// opens, after which the registry is read-only and safe to share.
type Registry struct {
	actions   []*Action
	actionIdx map[string]*Action

	resources []*Resource

	prompts   []*Prompt
	promptIdx map[string]*Prompt
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		actionIdx: make(map[string]*Action),
		promptIdx: make(map[string]*Prompt),
	}
}

// RegisterAction registers an invocable action under a unique name.
// A second registration under the same name fails with
// duplicate_identifier and leaves the registry unchanged.
func (r *Registry) RegisterAction(name, description string, schema Schema, fn ActionHandler) error {
	if _, exists := r.actionIdx[name]; exists {
		return wire.Errorf(wire.ErrDuplicateIdentifier, "action %q already registered", name)
	}
	a := &Action{Name: name, Description: description, Schema: schema, Handler: fn}
	r.actions = append(r.actions, a)
	r.actionIdx[name] = a
	return nil
}

// RegisterResource registers a read-only resource under a URI template.
// Two registrations of the same template string fail with
// duplicate_identifier; distinct-but-overlapping templates are legal and
// disambiguated deterministically at resolve time.
func (r *Registry) RegisterResource(template, description string, fn ResourceHandler) error {
	t, err := uritemplate.Parse(template)
	if err != nil {
		return wire.Wrap(wire.ErrInvalidArguments, err)
	}
	for _, existing := range r.resources {
		if existing.Template.String() == template {
			return wire.Errorf(wire.ErrDuplicateIdentifier, "resource template %q already registered", template)
		}
	}
	r.resources = append(r.resources, &Resource{Template: t, Description: description, Handler: fn})
	return nil
}

// RegisterPrompt registers a prompt template under a unique name.
func (r *Registry) RegisterPrompt(name, description string, schema Schema, fn PromptHandler) error {
	if _, exists := r.promptIdx[name]; exists {
		return wire.Errorf(wire.ErrDuplicateIdentifier, "prompt %q already registered", name)
	}
	p := &Prompt{Name: name, Description: description, Schema: schema, Handler: fn}
	r.prompts = append(r.prompts, p)
	r.promptIdx[name] = p
	return nil
}

// Action looks up an action by name.
func (r *Registry) Action(name string) (*Action, error) {
	a, ok := r.actionIdx[name]
	if !ok {
		return nil, wire.Errorf(wire.ErrUnknownAction, "unknown action %q", name)
	}
	return a, nil
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (*Prompt, error) {
	p, ok := r.promptIdx[name]
	if !ok {
		return nil, wire.Errorf(wire.ErrNotFound, "unknown prompt %q", name)
	}
	return p, nil
}

// ResolveResource matches a concrete URI against the registered resource
// templates, using the specificity tie-break, and returns the winning
// resource with its extracted parameters.
func (r *Registry) ResolveResource(uri string) (*Resource, map[string]string, error) {
	templates := make([]*uritemplate.Template, len(r.resources))
	for i, res := range r.resources {
		templates[i] = res.Template
	}
	m, ok := uritemplate.Resolve(uri, templates)
	if !ok {
		return nil, nil, wire.Errorf(wire.ErrResourceNotFound, "no resource matches %q", uri)
	}
	return r.resources[m.Index], m.Params, nil
}

// Actions returns the registered actions in registration order.
// The slice is a fresh copy, safe to re-range and retain.
func (r *Registry) Actions() []*Action {
	out := make([]*Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Resources returns the registered resources in registration order.
func (r *Registry) Resources() []*Resource {
	out := make([]*Resource, len(r.resources))
	copy(out, r.resources)
	return out
}

// Prompts returns the registered prompts in registration order.
func (r *Registry) Prompts() []*Prompt {
	out := make([]*Prompt, len(r.prompts))
	copy(out, r.prompts)
	return out
}

// Counts reports how many capabilities of each kind are registered.
// Sent in the session handshake.
func (r *Registry) Counts() map[string]int {
	return map[string]int{
		"actions":   len(r.actions),
		"resources": len(r.resources),
		"prompts":   len(r.prompts),
	}
}
