package health

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
)

type stubTransport struct{}

func (stubTransport) WriteJSON(any) error { return nil }
func (stubTransport) Close() error        { return nil }

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	registry := broker.NewRegistry(nil)

	registry.Register(broker.NewConn(broker.KindUser, "5", stubTransport{}))
	registry.Register(broker.NewConn(broker.KindGym, "1", stubTransport{}))
	registry.Register(broker.NewConn(broker.KindGym, "1", stubTransport{}))

	handler := New(logger, registry)

	req := httptest.NewRequest(http.MethodGet, "/fingerprint/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"active_connections": 3,
		"connected_users": ["5"],
		"gym_subscriptions": {"1": 2},
		"status": "healthy"
	}`, w.Body.String())
}
