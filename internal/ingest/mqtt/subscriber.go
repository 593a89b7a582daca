package mqtt

import (
	"context"
	"errors"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/geo-guardian/internal/config"
	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/logger"
	"github.com/oshokin/geo-guardian/internal/metrics"
)

// defaultClientID identifies this subscriber to the broker when the
// configuration does not name one.
const defaultClientID = "geo-guardian"

// Ingestor processes decoded reports.
type Ingestor interface {
	Ingest(ctx context.Context, report *track.Report) error
}

// Subscriber feeds OwnTracks messages from an MQTT broker into the
// pipeline. OwnTracks devices publish natively over MQTT; HTTP ingestion
// stays available alongside.
type Subscriber struct {
	client   paho.Client
	topic    string
	ingestor Ingestor
}

// NewSubscriber creates a subscriber for the configured broker and topic.
func NewSubscriber(cfg config.MQTT, ingestor Ingestor) *Subscriber {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerAddress).
		SetClientID(clientID).
		SetAutoReconnect(true)

	return &Subscriber{
		client:   paho.NewClient(opts),
		topic:    cfg.Topic,
		ingestor: ingestor,
	}
}

// Start connects to the broker and subscribes to the OwnTracks topic.
func (s *Subscriber) Start(ctx context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}

	handler := func(_ paho.Client, message paho.Message) {
		s.handleMessage(ctx, message)
	}

	if token := s.client.Subscribe(s.topic, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, token.Error())
	}

	logger.InfoKV(ctx, "Subscribed to OwnTracks topic", "topic", s.topic)

	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (s *Subscriber) Stop() {
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		logger.Errorf(context.Background(), "Failed to unsubscribe: %v", token.Error())
	}

	s.client.Disconnect(250)
}

// handleMessage decodes and ingests one broker message. Broker delivery is
// fire-and-forget; every failure is logged, none is retried here.
func (s *Subscriber) handleMessage(ctx context.Context, message paho.Message) {
	report, err := track.DecodeReport(message.Payload())

	switch {
	case errors.Is(err, track.ErrUnrecognizedKind):
		metrics.ReportsIgnored.Inc()

		return
	case err != nil:
		logger.WarnKV(ctx, "Dropping undecodable broker message",
			"topic", message.Topic(), "error", err.Error())

		return
	}

	if err := s.ingestor.Ingest(ctx, report); err != nil {
		logger.Errorf(ctx, "Failed to ingest broker report: %v", err)
	}
}
