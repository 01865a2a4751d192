package logging

import (
	"context"

	"go.viam.com/utils"
)

type traceKey struct{}

// WithTrace marks ctx so the C* debug methods log regardless of the logger level. Every line
// logged this way carries the tag under "trace"; an empty tag is replaced by a random one.
func WithTrace(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, traceKey{}, tag)
}

// TraceTag returns the tag ctx was marked with by WithTrace, or "".
func TraceTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(traceKey{}).(string)
	return tag
}
