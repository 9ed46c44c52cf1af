package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, RequestIDFrom(r.Context()))
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthWebSocketQueryKey(t *testing.T) {
	h := Auth("secret")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/ws?api_key=secret", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code, "query key only counts on upgrades")

	req.Header.Set("Upgrade", "websocket")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/pairs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid api key")
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestCORSVaryAndWildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://Dash.example.com")

	rec := serve(CORS([]string{"https://dash.example.com/"})(okHandler), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://Dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = serve(CORS([]string{"*"})(okHandler), req)
	assert.Equal(t, "https://Dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := Logging(slog.New(slog.NewJSONHandler(&buf, nil)))(okHandler)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/pairs", nil))
	id := rec.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())
	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"bytes":36`)

	req := httptest.NewRequest(http.MethodGet, "/api/pairs", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	assert.Equal(t, "upstream-1", serve(h, req).Header().Get("X-Request-ID"))
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "192.0.2.7", extractClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", extractClientIP(req))
}

func TestRateLimitRetryAfter(t *testing.T) {
	h := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/scan/latest", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	slow := RateLimit(0.01, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	slow.ServeHTTP(httptest.NewRecorder(), req)
	rec = httptest.NewRecorder()
	slow.ServeHTTP(rec, req)
	assert.Equal(t, "100", rec.Header().Get("Retry-After"))
}
