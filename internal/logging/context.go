package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const batchIDKey contextKey = "batch_id"

// WithBatchID attaches a detection batch id to the context so every log
// entry produced during that run carries it.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey, batchID)
}

// BatchID extracts the batch id from the context, if set.
func BatchID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchIDKey).(string)
	return id, ok
}

// ContextFields extracts log fields from the context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	if id, ok := BatchID(ctx); ok {
		return []zap.Field{zap.String("batch_id", id)}
	}
	return nil
}
