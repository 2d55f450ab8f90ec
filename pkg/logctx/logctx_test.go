package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromCtx(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	assert.Same(t, base, FromCtx(context.Background(), base))

	job := base.With("job", "expired_premium_sweep")
	assert.Same(t, job, FromCtx(With(context.Background(), job), base))

	ctx := context.WithValue(context.Background(), "traceID", "t-1")
	FromCtx(ctx, base).Infow("hello")
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "t-1", entries[0].ContextMap()["trace_id"])
	}
}
