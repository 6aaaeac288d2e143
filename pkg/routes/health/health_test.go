package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, c *Checker, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	failing := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("no checks", func(t *testing.T) {
		rec, body := serve(t, NewChecker("1.0.0"), "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.0.0", body["version"])
	})

	t.Run("all healthy", func(t *testing.T) {
		c := NewChecker("dev").AddCheck("ruler", healthy).AddCheck("prometheus", healthy)
		rec, body := serve(t, c, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		checks := body["checks"].(map[string]any)
		assert.Len(t, checks, 2)
	})

	t.Run("one failing", func(t *testing.T) {
		c := NewChecker("dev").AddCheck("ruler", healthy).AddCheck("prometheus", failing)
		rec, body := serve(t, c, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", body["status"])
		prom := body["checks"].(map[string]any)["prometheus"].(map[string]any)
		assert.Equal(t, "connection refused", prom["message"])
	})

	t.Run("nil pinger ignored", func(t *testing.T) {
		c := NewChecker("dev").AddCheck("ruler", nil)
		assert.Empty(t, c.checks)
	})
}

func TestLiveAndReady(t *testing.T) {
	c := NewChecker("dev")

	rec, body := serve(t, c, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])

	rec, _ = serve(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c.SetReady(true)
	rec, body = serve(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := serve(t, NewChecker("dev"), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
