package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/ratelimit"
)

func TestRecoverer_AnswersJSON500(t *testing.T) {
	s := &Server{logger: logger.Discard()}
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestRateLimit_AuthEndpoints(t *testing.T) {
	limiter := ratelimit.New(60, 2)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, Options{AuthLimiter: limiter})

	login := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		ts.server.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, login("10.0.0.1").Code)
	assert.Equal(t, http.StatusBadRequest, login("10.0.0.1").Code)

	w := login("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another client has its own bucket.
	assert.Equal(t, http.StatusBadRequest, login("10.0.0.2").Code)

	// Authenticated routes are not limited.
	for range 5 {
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/bugs", "", nil).Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.5:41000", "192.168.1.5"},
		{"ipv6 remote addr", nil, "[::1]:41000", "::1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", "198.51.100.2"},
		{"no port", nil, "unix-socket", "unix-socket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	ts := setupTestServer(t, Options{AllowedOrigins: []string{"https://bughive.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/bugs", nil)
	req.Header.Set("Origin", "https://bughive.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)

	assert.Equal(t, "https://bughive.example", w.Header().Get("Access-Control-Allow-Origin"))
}
