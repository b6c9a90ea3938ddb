package log

import "context"

type requestIDKey struct{}

// WithRequestID 把请求ID挂到ctx上, 之后的 *Contextf 日志都会带上它
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
