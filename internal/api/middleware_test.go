package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatscribe/chatscribe/internal/testutil"
)

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	protected := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/documents"},
		{http.MethodPost, "/api/v1/chat/start"},
		{http.MethodGet, "/api/v1/chat/sessions"},
	}

	for _, p := range protected {
		rr := ts.doJSON(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", p.method, p.path)
		assert.Equal(t, "auth_required", errorCode(t, rr))
	}
}

func TestAuthInvalidToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodGet, "/api/v1/documents", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_token", errorCode(t, rr))
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodGet, "/api/v1/documents", "", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rr.Header().Get("Referrer-Policy"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(cfg *ServerConfig) {
		cfg.CORSOrigins = []string{"https://app.example.com"}
	})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
		req.Header.Set("Origin", "https://app.example.com")

		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)

		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(cfg *ServerConfig) {
		cfg.RateBurst = 2
	})

	// Burst of 2: the third immediate request is rejected.
	for i := 0; i < 2; i++ {
		rr := ts.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
		require.NotEqual(t, http.StatusTooManyRequests, rr.Code, "request %d", i)
	}

	rr := ts.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", errorCode(t, rr))
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	newReq := func(remote string, headers map[string]string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req
	}

	t.Run("remote addr", func(t *testing.T) {
		t.Parallel()
		ip := clientIP(newReq("203.0.113.7:4711", nil), false)
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("proxy headers ignored without trust", func(t *testing.T) {
		t.Parallel()
		ip := clientIP(newReq("203.0.113.7:4711", map[string]string{"X-Real-IP": "198.51.100.1"}), false)
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("x-real-ip preferred", func(t *testing.T) {
		t.Parallel()
		ip := clientIP(newReq("10.0.0.1:80", map[string]string{
			"X-Real-IP":       "198.51.100.1",
			"X-Forwarded-For": "192.0.2.1, 10.0.0.1",
		}), true)
		assert.Equal(t, "198.51.100.1", ip)
	})

	t.Run("x-forwarded-for first entry", func(t *testing.T) {
		t.Parallel()
		ip := clientIP(newReq("10.0.0.1:80", map[string]string{
			"X-Forwarded-For": "192.0.2.1, 10.0.0.1",
		}), true)
		assert.Equal(t, "192.0.2.1", ip)
	})

	t.Run("garbage header falls back to remote addr", func(t *testing.T) {
		t.Parallel()
		ip := clientIP(newReq("203.0.113.7:4711", map[string]string{"X-Real-IP": "not-an-ip"}), true)
		assert.Equal(t, "203.0.113.7", ip)
	})
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(testutil.QuietLogger())(panicky)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}
