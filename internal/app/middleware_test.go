package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forwardline/forwardline/internal/shared"
)

func TestScopeMiddlewareParsesGatewayHeaders(t *testing.T) {
	var got shared.Scope
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ScopeFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/projects/P1", nil)
	req.Header.Set("X-Forward-User", "ops@forwardline.example")
	req.Header.Set("X-Forward-Divisions", "Import, Export ,")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "ops@forwardline.example", got.User)
	require.False(t, got.Admin)
	require.Equal(t, []string{"Import", "Export"}, got.Divisions)
}

func TestScopeMiddlewareAdmin(t *testing.T) {
	var got shared.Scope
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ScopeFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forward-Admin", "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, got.Admin)
	require.Empty(t, got.Divisions)
}

func TestScopeMiddlewareMissingHeadersBlocksDivisions(t *testing.T) {
	var got shared.Scope
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ScopeFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	cond, args := got.DivisionCondition("division", 1)
	require.Equal(t, "1=0", cond)
	require.Empty(t, args)
}

func TestMiddlewareStackOrder(t *testing.T) {
	cfg := MiddlewareConfig{
		Logger: NewLogger(&Config{LogFormat: "pretty"}),
		Config: &Config{AppRequestTimeout: 5 * time.Second},
	}
	stack := MiddlewareStack(cfg)
	require.NotEmpty(t, stack)

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := shared.ScopeFromContext(r.Context())
		require.True(t, scope.Admin)
		w.WriteHeader(http.StatusOK)
	}))
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forward-Admin", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
