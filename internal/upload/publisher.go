package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/pubsub"
)

// PublishError marks a broker rejection or unavailability. The engine treats
// it as terminal for the attempt; redelivery is the broker's concern.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Publisher announces a stored upload to downstream processing.
type Publisher interface {
	Publish(ctx context.Context, event *UploadedEvent) error
}

// PubSubPublisher sends UploadedEvents to the transcode topic and waits for
// the broker ack before reporting success.
type PubSubPublisher struct {
	publisher *gcppubsub.Publisher
	topic     string
	timeout   time.Duration
}

func NewPubSubPublisher(client *pubsub.Client, cfg config.PubSubConfig) *PubSubPublisher {
	return &PubSubPublisher{
		publisher: client.TranscodePublisher(),
		topic:     cfg.TranscodeTopic,
		timeout:   cfg.PublishTimeout,
	}
}

func (p *PubSubPublisher) Publish(ctx context.Context, event *UploadedEvent) error {
	if p == nil || p.publisher == nil {
		return &PublishError{Topic: p.topicName(), Err: errors.New("publisher not initialized")}
	}
	if event == nil {
		return &PublishError{Topic: p.topic, Err: errors.New("nil event")}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Topic: p.topic, Err: fmt.Errorf("encoding event: %w", err)}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	result := p.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": "video.uploaded",
			"upload_id":  event.UploadID,
			"user_id":    event.UserID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return &PublishError{Topic: p.topic, Err: err}
	}
	return nil
}

func (p *PubSubPublisher) topicName() string {
	if p == nil {
		return ""
	}
	return p.topic
}
