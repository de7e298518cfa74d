package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flyte-gateway/pkg/auth"
	"flyte-gateway/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": logger.GetUsername(c.Request.Context())})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := NewRateLimiter(client, RateLimiterConfig{Enabled: true, RequestsPerSecond: 1, BurstCapacity: 2}, zaptest.NewLogger(t))
	frozen := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }
	r := newEngine(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)

	w := get(r, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "ratelimit:tb:GET:/ping:")

	// one second refills one token
	frozen = frozen.Add(time.Second)
	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
}

func TestRateLimiter_FallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rl := NewRateLimiter(client, RateLimiterConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 1}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", nil).Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimiterConfig{Enabled: false, RequestsPerSecond: 0.001, BurstCapacity: 1}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	}
}

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour, "flyte-gateway")
	token, err := tokens.Issue("jane", "jane@example.com")
	require.NoError(t, err)

	r := newEngine(Auth(tokens, zaptest.NewLogger(t)))

	t.Run("valid token", func(t *testing.T) {
		w := get(r, "/ping", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"username":"jane"}`, w.Body.String())
	})

	t.Run("no token", func(t *testing.T) {
		w := get(r, "/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"username":""}`, w.Body.String())
	})

	t.Run("bad token", func(t *testing.T) {
		w := get(r, "/ping", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := get(r, "/ping", map[string]string{"Authorization": "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuth_DisabledIgnoresHeader(t *testing.T) {
	r := newEngine(Auth(auth.NewTokenService("", 0, ""), zaptest.NewLogger(t)))

	w := get(r, "/ping", map[string]string{"Authorization": "Bearer whatever"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryAndLogger(t *testing.T) {
	log := zaptest.NewLogger(t)
	r := newEngine(Recovery(log), Logger(log))

	w := get(r, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"Internal server error"}`, w.Body.String())
}
