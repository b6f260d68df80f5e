// Package capability holds the three capability kinds a caplink server
// exposes (actions, resources, and prompts) and the registry that owns
// them for one server instance.
package capability

import (
	"context"

	"github.com/caplink-proto/caplink/pkg/uritemplate"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// ActionHandler executes one action call. args has already passed schema
// validation. The context is the session request's context: it is
// cancelled when the client disconnects or its deadline fires, and
// handlers observe that cooperatively; a handler that ignores ctx runs
// to completion.
type ActionHandler func(ctx context.Context, args map[string]any) (any, error)

// ResourceHandler produces the data behind a resource URI. params holds
// the values extracted from the URI template's placeholders.
type ResourceHandler func(ctx context.Context, params map[string]string) (any, error)

// PromptHandler renders a prompt template. It returns either a string
// (normalized to a single user-role message) or a []wire.PromptMessage.
type PromptHandler func(ctx context.Context, args map[string]any) (any, error)

// Action is an invocable capability. Immutable after registration.
type Action struct {
	Name        string
	Description string
	Schema      Schema
	Handler     ActionHandler
}

// Descriptor exports the action in the list-actions / model-selection shape.
func (a *Action) Descriptor() wire.ActionDescriptor {
	return wire.ActionDescriptor{
		Name:        a.Name,
		Description: a.Description,
		Parameters:  a.Schema.Descriptors(),
	}
}

// Resource is a read-only capability addressed by a URI template.
// Immutable after registration.
type Resource struct {
	Template    *uritemplate.Template
	Description string
	Handler     ResourceHandler
}

// Descriptor exports the resource in the list-resources shape.
func (r *Resource) Descriptor() wire.ResourceDescriptor {
	return wire.ResourceDescriptor{
		URITemplate: r.Template.String(),
		Description: r.Description,
	}
}

// Prompt is a reusable template capability. Immutable after registration.
type Prompt struct {
	Name        string
	Description string
	Schema      Schema
	Handler     PromptHandler
}

// Descriptor exports the prompt in the list-prompts shape.
func (p *Prompt) Descriptor() wire.PromptDescriptor {
	return wire.PromptDescriptor{
		Name:        p.Name,
		Description: p.Description,
		Parameters:  p.Schema.Descriptors(),
	}
}
