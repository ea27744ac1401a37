package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/service"

	"github.com/pkg/errors"
	cdkpubsub "gocloud.dev/pubsub"
	// Registers the mem:// scheme for local runs.
	_ "gocloud.dev/pubsub/mempubsub"
)

// goCloudPublisher sends events through any portable gocloud.dev topic.
type goCloudPublisher struct {
	topic  *cdkpubsub.Topic
	logger *slog.Logger
}

// NewGoCloudPublisher opens the topic at topicURL, e.g. mem://security-events.
func NewGoCloudPublisher(ctx context.Context, topicURL string, logger *slog.Logger) (service.EventPublisher, error) {
	topic, err := cdkpubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open topic %s", topicURL)
	}

	return newGoCloudPublisherWithTopic(topic, logger), nil
}

func newGoCloudPublisherWithTopic(topic *cdkpubsub.Topic, logger *slog.Logger) service.EventPublisher {
	return &goCloudPublisher{topic: topic, logger: logger}
}

func (p *goCloudPublisher) PublishSecurityEvent(ctx context.Context, event *entity.SecurityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := p.topic.Send(ctx, &cdkpubsub.Message{Body: data, Metadata: eventAttributes(event)}); err != nil {
		return errors.Wrap(err, "failed to send event")
	}

	p.logger.Debug("[GoCloudPubSub] Event published",
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
	)

	return nil
}

func (p *goCloudPublisher) Close() error {
	return errors.WithStack(p.topic.Shutdown(context.Background()))
}

// eventAttributes are the message attributes used for filtering and tracing.
func eventAttributes(event *entity.SecurityEvent) map[string]string {
	attributes := map[string]string{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"kind":       event.Kind.String(),
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}

	return attributes
}
