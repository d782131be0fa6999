package helpers

import (
	"encoding/base64"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/momo-analyzer/internal/handlers"
	"github.com/nimasrn/momo-analyzer/internal/repository"
	"github.com/nimasrn/momo-analyzer/internal/services"
	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
	"github.com/nimasrn/momo-analyzer/pkg/pg"
	"github.com/nimasrn/momo-analyzer/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const (
	AuthUser     = "admin"
	AuthPassword = "password"
)

func SetupTestDB(t *testing.T) *pg.DB {
	return repository.NewTestDB(t)
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// adapters are cached by connection name
	name := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(name, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redis.Close(name) })

	return mr, adapter
}

// NewAPI wires the HTTP surface the way cmd/api does, without listening.
func NewAPI(txs *services.TransactionService, imports *services.ImportService, health *services.HealthService) xhttp.RequestHandler {
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.BasicAuthMiddleware("MoMo Analyzer", AuthUser, AuthPassword))
	s.Router = xhttp.CreateDefaultRouter()

	g := s.Router.Group("/api/v1")
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(txs))
	handlers.RegisterImportRoutes(g, handlers.NewImportHandler(imports))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(health))

	return s.Handler()
}

// Do runs one request through h. Requests are authenticated unless auth is false.
func Do(h xhttp.RequestHandler, method, uri string, body []byte, auth bool) *fasthttp.Response {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	if auth {
		token := base64.StdEncoding.EncodeToString([]byte(AuthUser + ":" + AuthPassword))
		ctx.Request.Header.Set("Authorization", "Basic "+token)
	}

	h(ctx)

	resp := &fasthttp.Response{}
	ctx.Response.CopyTo(resp)
	return resp
}
