package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bidhub/config"
	"bidhub/internal/domain/constants"
	"bidhub/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"gocloud.dev/pubsub/mempubsub"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEvent() *entity.SecurityEvent {
	return &entity.SecurityEvent{
		ID:         uuid.NewString(),
		RequestID:  "req-1",
		Type:       entity.EventLoginSucceeded,
		AccountID:  uuid.New(),
		Kind:       entity.KindWorker,
		OccurredAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLocalHTTPPublisher(t *testing.T) {
	event := newEvent()

	var received PubSubPushMessage
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, discardLogger())
	require.NoError(t, publisher.PublishSecurityEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, event.ID, received.Message.MessageID)
	assert.Equal(t, "login.succeeded", received.Message.Attributes["event_type"])

	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)
	var decoded entity.SecurityEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.AccountID, decoded.AccountID)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewLocalHTTPPublisher(server.URL, discardLogger()).PublishSecurityEvent(context.Background(), newEvent())
	assert.Error(t, err)
}

func TestGoCloudPublisher(t *testing.T) {
	ctx := context.Background()
	topic := mempubsub.NewTopic()
	sub := mempubsub.NewSubscription(topic, time.Minute)
	defer sub.Shutdown(ctx)

	publisher := newGoCloudPublisherWithTopic(topic, discardLogger())
	event := newEvent()
	require.NoError(t, publisher.PublishSecurityEvent(ctx, event))

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := sub.Receive(recvCtx)
	require.NoError(t, err)
	msg.Ack()

	assert.Equal(t, event.ID, msg.Metadata["event_id"])
	assert.Equal(t, "worker", msg.Metadata["kind"])

	var decoded entity.SecurityEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.Type, decoded.Type)

	require.NoError(t, publisher.Close())
}

func TestNewEventPublisher(t *testing.T) {
	tests := []struct {
		name    string
		pubsub  *config.PubSubConfig
		wantErr bool
		publish bool
	}{
		{name: "unconfigured is noop", publish: true},
		{name: "empty provider is noop", pubsub: &config.PubSubConfig{}, publish: true},
		{name: "local", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderLocal, LocalEndpoint: "http://localhost:9/events"}},
		{name: "local without endpoint", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderLocal}, wantErr: true},
		{name: "google without project", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderGoogle, TopicID: "t"}, wantErr: true},
		{name: "google without topic", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderGoogle, ProjectID: "p"}, wantErr: true},
		{name: "gocloud mem topic", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderGoCloud, GoCloudURL: "mem://security-events"}, publish: true},
		{name: "gocloud without url", pubsub: &config.PubSubConfig{Provider: constants.PubSubProviderGoCloud}, wantErr: true},
		{name: "unknown", pubsub: &config.PubSubConfig{Provider: "kafka"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			publisher, err := NewEventPublisher(PublisherParams{
				Lc:     lc,
				Ctx:    context.Background(),
				Config: &config.Config{PubSub: tt.pubsub},
				Logger: discardLogger(),
			})
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			if tt.publish {
				require.NoError(t, publisher.PublishSecurityEvent(context.Background(), newEvent()))
			}
			lc.RequireStart().RequireStop()
		})
	}
}
