package logging

import "context"

// RequestIDKey is the attribute name under which both backends log the id
// carried by the context.
const RequestIDKey = "request_id"

type requestIDKey struct{}

// WithRequestID tags ctx so every log call made with it carries id: an
// HTTP request id, an API Gateway request id or an SQS message id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// withContextArgs appends the request id from ctx to args.
func withContextArgs(ctx context.Context, args []any) []any {
	if id, ok := RequestID(ctx); ok {
		return append(args[:len(args):len(args)], RequestIDKey, id)
	}
	return args
}
