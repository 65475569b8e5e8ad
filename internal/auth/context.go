package auth

import (
	"context"

	"shopbook/backend/internal/domain"
)

type ctxKey int

const ctxKeyCaller ctxKey = iota

func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, caller)
}

func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(ctxKeyCaller).(domain.Caller)
	return caller, ok && caller.ID != ""
}
