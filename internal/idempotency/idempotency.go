package idempotency

import (
	"context"

	"github.com/google/uuid"
)

// Header lets clients replay a request without emitting its events twice.
const Header = "Idempotency-Key"

type ctxKey struct{}

func WithKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}

	return context.WithValue(ctx, ctxKey{}, key)
}

// GetKey falls back to a fresh key when the request did not carry one.
func GetKey(ctx context.Context) string {
	key, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return uuid.NewString()
	}

	return key
}
