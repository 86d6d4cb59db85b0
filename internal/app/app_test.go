package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/jnst/fan-notification-outbox/internal/config"
	"github.com/jnst/fan-notification-outbox/internal/logger"
	"github.com/jnst/fan-notification-outbox/internal/model"
)

func testConfig(transportName string) *config.Config {
	return &config.Config{
		Notify: config.NotifyConfig{
			Transport:  transportName,
			AuthScheme: config.AuthSchemeBearer,
			AuthHeader: "X-Notify-Token",
			Timeout:    time.Second,
			Stream:     "fan:notifications",
		},
		Breaker: config.BreakerConfig{ConsecutiveFailures: 5, Timeout: time.Second},
	}
}

func TestNewTransport(t *testing.T) {
	t.Parallel()

	log := logger.Discard()

	sender, err := NewTransport(testConfig(config.TransportLog), nil, log)
	require.NoError(t, err)
	require.Equal(t, "log", sender.Name())

	sender, err = NewTransport(testConfig(config.TransportHTTP), nil, log)
	require.NoError(t, err)
	require.Equal(t, "log", sender.Name())

	_, err = NewTransport(testConfig(config.TransportRedis), nil, log)
	require.Error(t, err)

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	sender, err = NewTransport(testConfig(config.TransportRedis), client, log)
	require.NoError(t, err)
	require.Equal(t, "redis", sender.Name())
}

func TestNewTransport_HTTPAuthSchemes(t *testing.T) {
	t.Parallel()

	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	payload := model.NewPayload(model.MatchEndedData{MatchID: "m", TeamAID: "a", TeamBID: "b"})
	notification := model.NewNotification("outbox-1", payload, []model.Recipient{{ID: "1", Email: "a@example.com"}})

	cfg := testConfig(config.TransportHTTP)
	cfg.Notify.Endpoint = server.URL
	cfg.Notify.Token = "tok"
	cfg.Notify.SigningSecret = "sig"

	sender, err := NewTransport(cfg, nil, logger.Discard())
	require.NoError(t, err)
	require.Equal(t, "http", sender.Name())
	require.NoError(t, sender.Send(context.Background(), notification))
	require.Equal(t, "Bearer tok", headers.Get("Authorization"))
	require.NotEmpty(t, headers.Get("X-Signature"))

	cfg.Notify.AuthScheme = config.AuthSchemeHeader

	sender, err = NewTransport(cfg, nil, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), notification))
	require.Equal(t, "tok", headers.Get("X-Notify-Token"))
	require.Empty(t, headers.Get("Authorization"))
}
