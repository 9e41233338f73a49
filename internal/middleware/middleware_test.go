package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/playground/internal/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, http.MethodGet, "/", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRecoveryHandler(t *testing.T) {
	panics := 0
	r := gin.New()
	r.Use(RecoveryHandler(nil, func() { panics++ }))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := perform(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, panics)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "突发容量耗尽")
	assert.True(t, rl.Allow("b"), "不同客户端互不影响")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "令牌按速率恢复")

	t.Run("清理空闲客户端", func(t *testing.T) {
		now = now.Add(11 * time.Minute)
		assert.Equal(t, 2, rl.Cleanup())
	})

	t.Run("速率为零不限流", func(t *testing.T) {
		unlimited := NewRateLimiter(0, 0)
		for i := 0; i < 100; i++ {
			require.True(t, unlimited.Allow("x"))
		}
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	blocked := []string{}
	rl := NewRateLimiter(0.001, 1)

	r := gin.New()
	r.Use(rl.Middleware(func(endpoint string) { blocked = append(blocked, endpoint) }))
	r.POST("/v1/session/address", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/v1/session/address", "").Code)
	rec := perform(r, http.MethodPost, "/v1/session/address", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"/v1/session/address"}, blocked)
}

func TestHTTPMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(HTTPMetrics(metrics))
	r.GET("/v1/session", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/v1/session", "")
	perform(r, http.MethodGet, "/missing", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/v1/session", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/", "{}").Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, perform(r, http.MethodPost, "/", `{"seconds":300}`).Code)
}
