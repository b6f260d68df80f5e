// Package dispatch translates wire requests into wire responses against
// a capability registry. It is the single entry point for all six
// protocol operations and the only place handler failures are caught.
package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/caplink-proto/caplink/internal/capability"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// Dispatcher resolves and executes call requests. It holds no mutable
// state: every call is independent, and the registry is read-only at
// dispatch time.
type Dispatcher struct {
	reg    *capability.Registry
	logger *zap.Logger
}

// New creates a dispatcher over reg.
func New(reg *capability.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{reg: reg, logger: logger}
}

// Dispatch executes one request and always returns a well-formed
// response. Handler errors and panics are converted to error envelopes,
// never propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, req wire.Request) wire.Response {
	switch req.Kind {
	case wire.KindListActions:
		return wire.Ok(d.listActions())
	case wire.KindCallAction:
		return d.callAction(ctx, req)
	case wire.KindListResources:
		return wire.Ok(d.listResources())
	case wire.KindReadResource:
		return d.readResource(ctx, req)
	case wire.KindListPrompts:
		return wire.Ok(d.listPrompts())
	case wire.KindGetPrompt:
		return d.getPrompt(ctx, req)
	default:
		return wire.Fail(wire.Errorf(wire.ErrTransport, "unknown request kind %q", req.Kind))
	}
}

func (d *Dispatcher) listActions() []wire.ActionDescriptor {
	actions := d.reg.Actions()
	out := make([]wire.ActionDescriptor, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Descriptor())
	}
	return out
}

func (d *Dispatcher) listResources() []wire.ResourceDescriptor {
	resources := d.reg.Resources()
	out := make([]wire.ResourceDescriptor, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Descriptor())
	}
	return out
}

func (d *Dispatcher) listPrompts() []wire.PromptDescriptor {
	prompts := d.reg.Prompts()
	out := make([]wire.PromptDescriptor, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, p.Descriptor())
	}
	return out
}

func (d *Dispatcher) callAction(ctx context.Context, req wire.Request) wire.Response {
	action, err := d.reg.Action(req.ID)
	if err != nil {
		return wire.Fail(err)
	}
	if err := action.Schema.Validate(req.Arguments); err != nil {
		return wire.Fail(err)
	}

	result, err := d.invoke(ctx, req.ID, func(ctx context.Context) (any, error) {
		return action.Handler(ctx, req.Arguments)
	})
	if err != nil {
		return wire.Fail(err)
	}
	return wire.Ok(result)
}

func (d *Dispatcher) readResource(ctx context.Context, req wire.Request) wire.Response {
	resource, params, err := d.reg.ResolveResource(req.URI)
	if err != nil {
		return wire.Fail(err)
	}

	result, err := d.invoke(ctx, req.URI, func(ctx context.Context) (any, error) {
		return resource.Handler(ctx, params)
	})
	if err != nil {
		return wire.Fail(err)
	}
	return wire.Ok(result)
}

func (d *Dispatcher) getPrompt(ctx context.Context, req wire.Request) wire.Response {
	prompt, err := d.reg.Prompt(req.ID)
	if err != nil {
		return wire.Fail(err)
	}
	if err := prompt.Schema.Validate(req.Arguments); err != nil {
		return wire.Fail(err)
	}

	result, err := d.invoke(ctx, req.ID, func(ctx context.Context) (any, error) {
		return prompt.Handler(ctx, req.Arguments)
	})
	if err != nil {
		return wire.Fail(err)
	}

	messages, err := normalizeMessages(result)
	if err != nil {
		return wire.Fail(err)
	}
	return wire.Ok(messages)
}

// invoke runs a handler synchronously, converting any raised error to
// handler_error and recovering panics so a broken handler cannot take
// down the session.
func (d *Dispatcher) invoke(ctx context.Context, target string, fn func(context.Context) (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				zap.String("target", target),
				zap.Any("panic", r),
			)
			err = wire.Errorf(wire.ErrHandler, "handler panic: %v", r)
		}
	}()

	result, err = fn(ctx)
	if err != nil {
		// Protocol errors raised by the handler keep their kind; plain
		// errors become handler_error.
		var we *wire.Error
		if errors.As(err, &we) {
			return nil, err
		}
		return nil, wire.Wrap(wire.ErrHandler, err)
	}
	return result, nil
}

// normalizeMessages coerces a prompt handler's return value into the
// message-sequence shape: a bare string becomes one user-role message.
func normalizeMessages(result any) ([]wire.PromptMessage, error) {
	switch v := result.(type) {
	case string:
		return []wire.PromptMessage{{Role: wire.RoleUser, Content: v}}, nil
	case wire.PromptMessage:
		return []wire.PromptMessage{v}, nil
	case []wire.PromptMessage:
		return v, nil
	default:
		return nil, wire.Errorf(wire.ErrHandler, "prompt returned unsupported type %T", result)
	}
}
