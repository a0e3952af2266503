package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/westek-leads/pkg/logging"
)

func TestRateLimiterAllowsBurstThenRefills(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "limits are per client")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(5)
	now := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	now = now.Add(5 * time.Minute)
	rl.Allow("2.2.2.2")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.clients, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.7")
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRateLimiter(client, 2, logging.New("error"))
	now := time.Date(2024, 12, 10, 0, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("203.0.113.7"))
	assert.True(t, l.Allow("203.0.113.7"))
	assert.False(t, l.Allow("203.0.113.7"))
	assert.True(t, l.Allow("198.51.100.1"))

	key := "ratelimit:quotes:203.0.113.7:" + "28896480"
	require.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("203.0.113.7"), "new window")
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	l := NewRedisRateLimiter(client, 1, logging.New("error"))
	assert.True(t, l.Allow("203.0.113.7"))
	assert.True(t, l.Allow("203.0.113.7"))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4444"
	assert.Equal(t, "10.1.2.3", clientKey(req))
	req.Header.Set("X-Real-Ip", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientKey(req))
}
