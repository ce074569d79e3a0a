package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/v1/agent/messages", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func preflight(origin string) *http.Request {
	req := corsRequest(http.MethodOptions, origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return req
}

func TestCORS_AllowedOriginSeesRequestIDAndRetryAfter(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("X-Request-ID", "req-1")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	CORS([]string{"https://clinic.example"})(next).ServeHTTP(rec, corsRequest(http.MethodPost, "https://clinic.example"))

	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID, Retry-After", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"), "method list belongs on preflights only")
}

func TestCORS_UnknownOriginGetsNoGrant(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS([]string{"https://clinic.example"})(http.NotFoundHandler()).ServeHTTP(rec, corsRequest(http.MethodGet, "https://unknown.example"))

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_WildcardEchoesOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS([]string{" * "})(http.NotFoundHandler()).ServeHTTP(rec, corsRequest(http.MethodGet, "http://localhost:3000"))

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_TrailingSlashInConfigIsIgnored(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS([]string{"https://clinic.example/", ""})(http.NotFoundHandler()).ServeHTTP(rec, corsRequest(http.MethodGet, "https://clinic.example"))

	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightAdvertisesIdentityHeaders(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	CORS([]string{"*"})(next).ServeHTTP(rec, preflight("http://localhost:3000"))

	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Authorization, Content-Type, X-User-ID, X-Request-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PreflightFromUnknownOriginIsBare(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS([]string{"https://clinic.example"})(http.NotFoundHandler()).ServeHTTP(rec, preflight("https://evil.example"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_OptionsWithoutOriginPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusMethodNotAllowed) })
	CORS([]string{"*"})(next).ServeHTTP(rec, corsRequest(http.MethodOptions, ""))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Header().Get("Vary"))
}
