package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/provider"
)

type capturedPush struct {
	header http.Header
	body   provider.PushRequest
}

func pushServer(t *testing.T, status int, got *capturedPush, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/push", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		got.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("queued"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

var payload = domain.Payload{
	Title:      "New drop",
	Body:       "Holders get early access",
	Recipients: []domain.UserID{"U1", "U3"},
}

func TestPushClient_Send(t *testing.T) {
	var got capturedPush
	var hits atomic.Int32
	srv := pushServer(t, http.StatusOK, &got, &hits)
	c := provider.NewPushClient(srv.URL+"/push", "s3cret", time.Second, zap.NewNop())

	ctx := provider.WithCorrelationID(context.Background(), "run-123")
	out := c.Send(ctx, payload)

	assert.True(t, out.Sent)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "queued", out.Response)
	assert.EqualValues(t, 1, hits.Load())

	assert.Equal(t, "secret s3cret", got.header.Get("Authorization"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "run-123", got.header.Get("X-Correlation-ID"))
	assert.Equal(t, payload.Recipients, got.body.UserIDs)
	assert.Equal(t, payload.Title, got.body.Title)
	assert.Equal(t, payload.Body, got.body.Body)
}

func TestPushClient_Send_EmptyRecipientsIsNoop(t *testing.T) {
	var got capturedPush
	var hits atomic.Int32
	srv := pushServer(t, http.StatusOK, &got, &hits)
	c := provider.NewPushClient(srv.URL+"/push", "s3cret", time.Second, zap.NewNop())

	out := c.Send(context.Background(), domain.Payload{Title: "t", Body: "b"})

	assert.True(t, out.Skipped)
	assert.False(t, out.Sent)
	assert.Zero(t, hits.Load())
}

func TestPushClient_Send_FailureStatus(t *testing.T) {
	var got capturedPush
	var hits atomic.Int32
	srv := pushServer(t, http.StatusUnauthorized, &got, &hits)

	core, logs := observer.New(zap.ErrorLevel)
	c := provider.NewPushClient(srv.URL+"/push", "wrong", time.Second, zap.New(core))

	out := c.Send(context.Background(), payload)

	assert.False(t, out.Sent)
	assert.Equal(t, http.StatusUnauthorized, out.StatusCode)
	assert.Equal(t, "queued", out.Response)
	assert.EqualValues(t, 1, hits.Load(), "dispatch must not be retried")

	entries := logs.FilterMessage("error sending push notification").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, http.StatusUnauthorized, entries[0].ContextMap()["status"])
}

func TestPushClient_Send_MissingConfig(t *testing.T) {
	var got capturedPush
	var hits atomic.Int32
	srv := pushServer(t, http.StatusOK, &got, &hits)

	tests := []struct {
		name, endpoint, secret string
	}{
		{"missing endpoint", "", "s3cret"},
		{"missing secret", srv.URL + "/push", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := provider.NewPushClient(tc.endpoint, tc.secret, time.Second, zap.NewNop())
			out := c.Send(context.Background(), payload)
			assert.False(t, out.Sent)
			assert.False(t, out.Skipped)
		})
	}
	assert.Zero(t, hits.Load())
}

func TestPushClient_Send_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := provider.NewPushClient(url, "s3cret", time.Second, zap.NewNop())
	out := c.Send(context.Background(), payload)
	assert.False(t, out.Sent)
	assert.Zero(t, out.StatusCode)
}
