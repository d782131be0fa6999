package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nimasrn/momo-analyzer/internal/model"
	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.TransactionRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionService) Get(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionRecord), args.Error(1)
}

func (m *MockTransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*model.TransactionRecord, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionRecord), args.Error(1)
}

func (m *MockTransactionService) Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionRecord), args.Error(1)
}

func (m *MockTransactionService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func errorBody(t *testing.T, ctx *xhttp.RequestCtx) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	return resp["error"]
}

func sampleRecord(id int64) *model.TransactionRecord {
	cp := "Jane Smith"
	return &model.TransactionRecord{
		ID:           id,
		Type:         model.TxTypeIncoming,
		Amount:       2000,
		Counterpart:  &cp,
		ReadableDate: "10 May 2024 4:30:58 PM",
		RawBody:      "You have received 2000 RWF from Jane Smith (*********013) at 2024-05-10 16:30:51.",
	}
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := new(MockTransactionService)
		handler := NewTransactionHandler(svc)

		svc.On("List", mock.Anything, model.TransactionFilter{}).
			Return([]*model.TransactionRecord{sampleRecord(1), sampleRecord(2)}, int64(2), nil)

		ctx := setupTestContext("GET", "/api/v1/transactions", nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

		var resp struct {
			Items []*model.TransactionRecord `json:"items"`
			Total int64                      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, int64(2), resp.Total)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "Jane Smith", *resp.Items[0].Counterpart)
		svc.AssertExpectations(t)
	})

	t.Run("filters and paging from query", func(t *testing.T) {
		svc := new(MockTransactionService)
		handler := NewTransactionHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
			return f.Type != nil && *f.Type == model.TxTypeOutgoing &&
				f.Limit == 5 && f.Offset == 10 && f.Desc
		})).Return(nil, int64(0), nil)

		ctx := setupTestContext("GET", "/api/v1/transactions?type=outgoing&limit=5&offset=10&order=desc", nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"items":[],"total":0}`, string(ctx.Response.Body()))
		svc.AssertExpectations(t)
	})

	t.Run("invalid query values", func(t *testing.T) {
		for _, uri := range []string{
			"/api/v1/transactions?type=otp",
			"/api/v1/transactions?type=unknown",
			"/api/v1/transactions?limit=abc",
			"/api/v1/transactions?limit=-1",
			"/api/v1/transactions?offset=-3",
		} {
			svc := new(MockTransactionService)
			ctx := setupTestContext("GET", uri, nil)
			NewTransactionHandler(svc).ListTransactions(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode(), uri)
			svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		}
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("List", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("database down"))

		ctx := setupTestContext("GET", "/api/v1/transactions", nil)
		NewTransactionHandler(svc).ListTransactions(ctx)

		assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
		assert.Equal(t, "database down", errorBody(t, ctx))
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Get", mock.Anything, int64(7)).Return(sampleRecord(7), nil)

		ctx := setupTestContext("GET", "/api/v1/transactions/7", nil)
		ctx.SetUserValue("id", "7")
		NewTransactionHandler(svc).GetTransaction(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		var rec model.TransactionRecord
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &rec))
		assert.Equal(t, int64(7), rec.ID)
		assert.Nil(t, rec.TxID)
		assert.Contains(t, string(ctx.Response.Body()), `"tx_id":null`)
	})

	t.Run("message body is not html-escaped", func(t *testing.T) {
		rec := sampleRecord(8)
		rec.RawBody = "Fee was 10 RWF & balance <5>"
		svc := new(MockTransactionService)
		svc.On("Get", mock.Anything, int64(8)).Return(rec, nil)

		ctx := setupTestContext("GET", "/api/v1/transactions/8", nil)
		ctx.SetUserValue("id", "8")
		NewTransactionHandler(svc).GetTransaction(ctx)

		assert.Contains(t, string(ctx.Response.Body()), `"raw_body":"Fee was 10 RWF & balance <5>"`)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Get", mock.Anything, int64(99)).Return(nil, model.ErrTransactionNotFound)

		ctx := setupTestContext("GET", "/api/v1/transactions/99", nil)
		ctx.SetUserValue("id", "99")
		NewTransactionHandler(svc).GetTransaction(ctx)

		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
		assert.Equal(t, "transaction not found", errorBody(t, ctx))
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-2", ""} {
			svc := new(MockTransactionService)
			ctx := setupTestContext("GET", "/api/v1/transactions/"+id, nil)
			ctx.SetUserValue("id", id)
			NewTransactionHandler(svc).GetTransaction(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode(), id)
			assert.Equal(t, "invalid id", errorBody(t, ctx))
		}
	})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.TransactionCreateRequest) bool {
			return p.Type == model.TxTypeIncoming && p.Amount == 2000 && *p.Counterpart == "Jane Smith"
		})).Return(sampleRecord(18), nil)

		body := []byte(`{"type":"incoming","amount":2000,"counterpart":"Jane Smith"}`)
		ctx := setupTestContext("POST", "/api/v1/transactions", body)
		NewTransactionHandler(svc).CreateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
		var rec model.TransactionRecord
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &rec))
		assert.Equal(t, int64(18), rec.ID)
		svc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockTransactionService)
		ctx := setupTestContext("POST", "/api/v1/transactions", []byte(`{"type":`))
		NewTransactionHandler(svc).CreateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, errorBody(t, ctx), "invalid JSON")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, model.ErrInvalidAmount)

		ctx := setupTestContext("POST", "/api/v1/transactions", []byte(`{"type":"incoming","amount":0}`))
		NewTransactionHandler(svc).CreateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Equal(t, model.ErrInvalidAmount.Error(), errorBody(t, ctx))
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		svc := new(MockTransactionService)
		updated := sampleRecord(3)
		updated.Amount = 2500
		svc.On("Update", mock.Anything, int64(3), mock.MatchedBy(func(p model.TransactionUpdateRequest) bool {
			return p.Amount != nil && *p.Amount == 2500 && p.Type == nil
		})).Return(updated, nil)

		ctx := setupTestContext("PUT", "/api/v1/transactions/3", []byte(`{"amount":2500}`))
		ctx.SetUserValue("id", "3")
		NewTransactionHandler(svc).UpdateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		var rec model.TransactionRecord
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &rec))
		assert.Equal(t, int64(2500), rec.Amount)
		svc.AssertExpectations(t)
	})

	t.Run("missing record", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Update", mock.Anything, int64(42), mock.Anything).Return(nil, model.ErrTransactionNotFound)

		ctx := setupTestContext("PUT", "/api/v1/transactions/42", []byte(`{}`))
		ctx.SetUserValue("id", "42")
		NewTransactionHandler(svc).UpdateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("bad body", func(t *testing.T) {
		svc := new(MockTransactionService)
		ctx := setupTestContext("PUT", "/api/v1/transactions/3", []byte(`[`))
		ctx.SetUserValue("id", "3")
		NewTransactionHandler(svc).UpdateTransaction(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Delete", mock.Anything, int64(5)).Return(nil)

		ctx := setupTestContext("DELETE", "/api/v1/transactions/5", nil)
		ctx.SetUserValue("id", "5")
		NewTransactionHandler(svc).DeleteTransaction(ctx)

		assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
		assert.Empty(t, ctx.Response.Body())
	})

	t.Run("missing record", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Delete", mock.Anything, int64(5)).Return(model.ErrTransactionNotFound)

		ctx := setupTestContext("DELETE", "/api/v1/transactions/5", nil)
		ctx.SetUserValue("id", "5")
		NewTransactionHandler(svc).DeleteTransaction(ctx)

		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

func TestRegisterTransactionRoutes(t *testing.T) {
	svc := new(MockTransactionService)
	svc.On("Get", mock.Anything, int64(12)).Return(sampleRecord(12), nil)

	r := xhttp.CreateDefaultRouter()
	RegisterTransactionRoutes(r.Group("/api/v1"), NewTransactionHandler(svc))

	ctx := setupTestContext("GET", "/api/v1/transactions/12", nil)
	r.Handler(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}
