// Package bridge adapts the caplink action set to a language model's
// function-calling API and drives the protocol on the model's behalf.
//
// The bridge sits on the client side: it exports the server's action
// descriptors as function declarations, sends the conversation to the
// model, dispatches every call the model requests, feeds the results
// back, and repeats until the model produces a final message or the
// turn limit is reached.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/caplink-proto/caplink/pkg/wire"
)

// ErrTurnLimit is returned when the model keeps requesting calls past
// the configured turn budget.
var ErrTurnLimit = errors.New("bridge: model turn limit reached without a final message")

// ActionCaller is the slice of the caplink client the bridge needs.
// *client.Client satisfies it.
type ActionCaller interface {
	ListActions(ctx context.Context) ([]wire.ActionDescriptor, error)
	CallAction(ctx context.Context, id string, args map[string]any) (json.RawMessage, error)
}

// Model is the call-selection API behind the bridge. The production
// implementation is Gemini; tests script a fake.
type Model interface {
	Generate(ctx context.Context, contents []*genai.Content, tools []*genai.Tool) (*genai.GenerateContentResponse, error)
}

// Bridge drives one model conversation over one caplink session.
type Bridge struct {
	caller   ActionCaller
	model    Model
	maxTurns int
	logger   *zap.Logger
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithMaxTurns bounds the send→call→feed-back loop. Default 8.
func WithMaxTurns(n int) Option {
	return func(b *Bridge) { b.maxTurns = n }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New creates a bridge over an open caplink session and a model.
func New(caller ActionCaller, model Model, opts ...Option) *Bridge {
	b := &Bridge{caller: caller, model: model, maxTurns: 8, logger: zap.NewNop()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run sends userMessage to the model and loops until the model returns a
// final message with no further calls, or the turn limit is reached.
//
// Every call the model requests, including calls to actions that do not
// exist, is dispatched through the normal protocol channel and its
// result (or structured error) fed back into the conversation. The model
// may chain several calls per turn or decline to call anything.
func (b *Bridge) Run(ctx context.Context, userMessage string) (string, error) {
	actions, err := b.caller.ListActions(ctx)
	if err != nil {
		return "", fmt.Errorf("list actions: %w", err)
	}
	tools := []*genai.Tool{{FunctionDeclarations: Declarations(actions)}}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: userMessage}}},
	}

	for turn := 0; turn < b.maxTurns; turn++ {
		resp, err := b.model.Generate(ctx, contents, tools)
		if err != nil {
			return "", fmt.Errorf("model turn %d: %w", turn, err)
		}

		text, calls, modelContent := splitResponse(resp)
		if len(calls) == 0 {
			return text, nil
		}

		// Keep the model's own turn in the conversation, then answer
		// every requested call before asking for the next turn.
		contents = append(contents, modelContent)
		for _, fc := range calls {
			contents = append(contents, b.dispatchCall(ctx, fc))
		}
	}
	return "", ErrTurnLimit
}

// dispatchCall executes one model-requested call and wraps the outcome
// as a function response. Failures, unknown action included, travel
// back to the model as structured errors, never as a crash.
func (b *Bridge) dispatchCall(ctx context.Context, fc *genai.FunctionCall) *genai.Content {
	b.logger.Info("model requested call",
		zap.String("action", fc.Name),
		zap.Any("args", fc.Args),
	)

	var response map[string]any
	raw, err := b.caller.CallAction(ctx, fc.Name, fc.Args)
	if err != nil {
		b.logger.Warn("model call failed", zap.String("action", fc.Name), zap.Error(err))
		response = map[string]any{"error": err.Error()}
	} else {
		response = resultObject(raw)
	}

	return &genai.Content{
		Role: "user",
		Parts: []*genai.Part{{
			FunctionResponse: &genai.FunctionResponse{Name: fc.Name, Response: response},
		}},
	}
}

// splitResponse separates a model turn into its text, its requested
// calls, and the content to append back into the conversation.
func splitResponse(resp *genai.GenerateContentResponse) (string, []*genai.FunctionCall, *genai.Content) {
	var (
		text    strings.Builder
		calls   []*genai.FunctionCall
		content = &genai.Content{Role: "model"}
	)
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil, content
	}
	content = resp.Candidates[0].Content
	for _, part := range content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return text.String(), calls, content
}

// resultObject shapes a raw action result for the function-response
// channel, which requires a JSON object at the top level.
func resultObject(raw json.RawMessage) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return obj
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{"result": string(raw)}
	}
	return map[string]any{"result": v}
}

// Declarations translates caplink action descriptors into the model
// API's function-declaration format.
func Declarations(actions []wire.ActionDescriptor) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(actions))
	for _, a := range actions {
		properties := make(map[string]*genai.Schema, len(a.Parameters))
		var required []string
		for _, p := range a.Parameters {
			properties[p.Name] = &genai.Schema{
				Type:        genaiType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        a.Name,
			Description: a.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return decls
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeString
}
