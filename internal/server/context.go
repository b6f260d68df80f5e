package server

import "context"

type ctxKey int

const requestIDKey ctxKey = 0

// ContextWithRequestID attaches the transport-assigned request ID to the
// context handed to capability handlers.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request ID assigned by the transport, or ""
// when the handler was invoked outside a transport request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
