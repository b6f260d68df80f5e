// Package wire defines the caplink protocol envelope: the request and
// response shapes exchanged between client and server, the capability
// descriptors returned by list operations, and the error taxonomy.
//
// The envelope is deliberately small and stable:
//
//	request:  {kind, id?, uri?, arguments?}
//	response: {ok: true, result} | {ok: false, errorKind, message}
//
// Any client that preserves these shapes interoperates with any caplink
// server regardless of HTTP framing details.
package wire

import (
	"encoding/json"
	"errors"
)

// ProtocolVersion is exchanged during the session handshake. Servers and
// clients with the same major version interoperate.
const ProtocolVersion = "2025-08-01"

// Kind identifies the operation a request asks the server to perform.
type Kind string

const (
	KindListActions   Kind = "list-actions"
	KindCallAction    Kind = "call-action"
	KindListResources Kind = "list-resources"
	KindReadResource  Kind = "read-resource"
	KindListPrompts   Kind = "list-prompts"
	KindGetPrompt     Kind = "get-prompt"
)

// Valid reports whether k is one of the six protocol operations.
func (k Kind) Valid() bool {
	switch k {
	case KindListActions, KindCallAction, KindListResources,
		KindReadResource, KindListPrompts, KindGetPrompt:
		return true
	}
	return false
}

// Request is one protocol call. ID targets actions and prompts, URI
// targets resources; list operations carry neither.
type Request struct {
	Kind      Kind           `json:"kind"`
	ID        string         `json:"id,omitempty"`
	URI       string         `json:"uri,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Response is the result of one protocol call. Exactly one of Result or
// the ErrorKind/Message pair is populated, discriminated by OK.
type Response struct {
	OK        bool            `json:"ok"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorKind ErrorKind       `json:"errorKind,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Ok builds a success response, marshalling result into the envelope.
// A result that cannot be marshalled is reported as a handler error;
// the handler produced a value the protocol cannot carry.
func Ok(result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Fail(&Error{Kind: ErrHandler, Message: "result not serializable: " + err.Error()})
	}
	return Response{OK: true, Result: raw}
}

// Fail builds an error response from err, classifying it via Kind.
func Fail(err error) Response {
	var we *Error
	if errors.As(err, &we) {
		return Response{OK: false, ErrorKind: we.Kind, Message: we.Message}
	}
	return Response{OK: false, ErrorKind: ErrHandler, Message: err.Error()}
}

// Err converts an error response back into a *Error. Returns nil for
// success responses.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	return &Error{Kind: r.ErrorKind, Message: r.Message}
}

// Role tags a prompt message with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PromptMessage is one role-tagged message in a rendered prompt.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ParamDescriptor describes one schema parameter in the shape consumed
// by model-selection APIs: {name, type, required}.
type ParamDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// ActionDescriptor advertises one registered action.
type ActionDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Parameters  []ParamDescriptor `json:"parameters"`
}

// ResourceDescriptor advertises one registered resource template.
type ResourceDescriptor struct {
	URITemplate string `json:"uriTemplate"`
	Description string `json:"description,omitempty"`
}

// PromptDescriptor advertises one registered prompt template.
type PromptDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Parameters  []ParamDescriptor `json:"parameters"`
}

// Handshake is the server's reply to a session-open request.
type Handshake struct {
	SessionID       string         `json:"sessionId"`
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
	Capabilities    map[string]int `json:"capabilities"`
}

// ServerInfo identifies the server implementation during the handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
