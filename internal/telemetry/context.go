package telemetry

import "context"

type ctxKey byte

const telemeterContextKey ctxKey = iota

func ContextWithTelemeter(ctx context.Context, tlm *Telemeter) context.Context {
	return context.WithValue(ctx, telemeterContextKey, tlm)
}

// TelemeterFromContext returns the telemeter stored in ctx, or nil, which records nothing.
func TelemeterFromContext(ctx context.Context) *Telemeter {
	if val, ok := ctx.Value(telemeterContextKey).(*Telemeter); ok {
		return val
	}

	return nil
}
