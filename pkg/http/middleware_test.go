package xhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLoggerMiddleware_RequestID(t *testing.T) {
	h := RequestLoggerMiddleware(func(ctx *RequestCtx) {
		ctx.SetStatusCode(StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		ctx := newCtx("/api/v1/transactions", "")
		h(ctx)
		id := string(ctx.Response.Header.Peek("X-Request-Id"))
		assert.Len(t, id, 36)
		assert.Equal(t, id, ctx.UserValue("X-Request-Id"))
	})

	t.Run("echoed", func(t *testing.T) {
		ctx := newCtx("/api/v1/transactions", "")
		ctx.Request.Header.Set("X-Request-Id", "abc-123")
		h(ctx)
		assert.Equal(t, "abc-123", string(ctx.Response.Header.Peek("X-Request-Id")))
	})

	t.Run("skipped paths", func(t *testing.T) {
		ctx := newCtx("/health", "")
		h(ctx)
		assert.Empty(t, ctx.Response.Header.Peek("X-Request-Id"))
		assert.Equal(t, StatusOK, ctx.Response.StatusCode())
	})
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(ctx *RequestCtx) {
		panic("boom")
	})

	ctx := newCtx("/api/v1/transactions", "")
	assert.NotPanics(t, func() { h(ctx) })
	assert.Equal(t, StatusInternalServerError, ctx.Response.StatusCode())
}
