package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsServerHealth(t *testing.T) {
	healthy := true
	srv := createMetricsServer(":0", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	healthy = false
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewLogger_BadLevelFallsBack(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "loud", App: "warden/test"})
	assert.NoError(t, err)
	assert.NotNil(t, l)
}
