package interfaces

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"github.com/stretchr/testify/require"
)

const (
	annID = "7b0b3e4c-1111-4c1e-9a51-0b8a4e0f0001"
	bobID = "7b0b3e4c-2222-4c1e-9a51-0b8a4e0f0002"
)

// asUser stands in for the session middleware. An empty userID leaves the
// request anonymous.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(auth.WithSession(r.Context(), &auth.SessionInfo{UID: "fb-" + userID, UserID: userID}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(transactions TransactionServiceInterface, categories CategoryServiceInterface, userID string) http.Handler {
	th := NewTransactionHandler(transactions, respond.JSON, respond.Error, nil)
	ch := NewCategoryHandler(categories, respond.JSON, respond.Error, nil)

	r := chi.NewRouter()
	r.Get("/api/categories/system", ch.GetSystemCategories)
	r.Group(func(r chi.Router) {
		r.Use(asUser(userID))
		r.Get("/api/categories", ch.GetUserCategories)
		r.Post("/api/categories", ch.CreateCategory)
		r.Get("/api/transactions", th.GetUserTransactions)
		r.Post("/api/transactions", th.CreateTransaction)
		r.Get("/api/transactions/summary", th.GetTransactionSummary)
		r.Get("/api/transactions/breakdown", th.GetTransactionBreakdown)
		r.Put("/api/transactions/{id}", th.UpdateTransaction)
		r.Delete("/api/transactions/{id}", th.DeleteTransaction)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	return rr, decoded
}
