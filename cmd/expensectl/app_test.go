package main

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/client/authstate"
	"github.com/sebuszqo/ExpenseTracker/internal/client/backend"
	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, input string, mux *http.ServeMux) (*app, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	api, err := backend.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	var out bytes.Buffer
	return &app{
		in:   bufio.NewReader(strings.NewReader(input)),
		out:  &out,
		auth: authstate.NewController(nil, api, nil),
		api:  api,
	}, &out
}

func signedOutAPI() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusUnauthorized, "No session")
	})
	mux.HandleFunc("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusUnauthorized, "No session")
	})
	return mux
}

func TestRun_SignedOut(t *testing.T) {
	a, out := newTestApp(t, "help\nwhoami\nbogus\ntransactions\nquit\n", signedOutAPI())

	require.NoError(t, a.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Not signed in. Type 'help' for commands.")
	assert.Contains(t, text, "Commands:")
	assert.Contains(t, text, "Not signed in.")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "error: No session (try 'login')")
}

func TestRun_RestoresExistingSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]interface{}{"uid": "fb-ann", "email": "ann@example.com", "displayName": "Ann"})
	})
	mux.HandleFunc("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		respond.Success(w, http.StatusOK, map[string]interface{}{"transactions": []map[string]interface{}{{
			"id": "t-1", "amount": 42.5, "type": "expense", "category_id": 1, "date": "2024-01-01", "description": "lunch",
		}}})
	})

	a, out := newTestApp(t, "whoami\ntransactions\n", mux)
	require.NoError(t, a.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "* signed in as Ann")
	assert.Contains(t, text, "Ann <ann@example.com> (uid fb-ann)")
	assert.Contains(t, text, "2024-01-01")
	assert.Contains(t, text, "42.50")
	assert.Contains(t, text, "lunch")
}

func TestRun_UsageErrors(t *testing.T) {
	a, out := newTestApp(t, "update\ndelete a b\nsummary 2024/01/01\nquit\n", signedOutAPI())

	require.NoError(t, a.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "usage: update <id>")
	assert.Contains(t, text, "usage: delete <id>")
	assert.Contains(t, text, "start date must be YYYY-MM-DD")
}

func TestReadNewTransaction(t *testing.T) {
	a, _ := newTestApp(t, "12,50\nexpense\n3\n2024-02-29\ncoffee\n\n", signedOutAPI())

	in, err := a.readNewTransaction()
	require.NoError(t, err)
	assert.Equal(t, 12.5, in.Amount)
	assert.Equal(t, "expense", in.Type)
	assert.Equal(t, int64(3), in.CategoryID)
	assert.Equal(t, "2024-02-29", in.Date.String())
	require.NotNil(t, in.Description)
	assert.Equal(t, "coffee", *in.Description)
	assert.Empty(t, in.PaymentMethod)
}

func TestParseHelpers(t *testing.T) {
	_, err := parseAmount("-3")
	assert.Error(t, err)
	_, err = parseAmount("abc")
	assert.Error(t, err)

	today, err := parseDateOrToday("", time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", today.String())

	_, err = parseDateOrToday("06.05.2024", time.Now())
	assert.Error(t, err)

	assert.Nil(t, optional(""))
	assert.Equal(t, 1, monthIndex("January"))
	assert.Equal(t, 12, monthIndex("December"))
}

func TestPassword_FallsBackToPlainInput(t *testing.T) {
	a, _ := newTestApp(t, "secret1\n", signedOutAPI())
	a.readPassword = func(string) (string, error) { return "", errNoTerminal }

	p, err := a.password("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret1", p)
}
