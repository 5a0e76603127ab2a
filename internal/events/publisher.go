// Package events publishes campaign lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName  = "CAMPAIGNS"
	SubjectBase = "campaign"

	EventSynthesisStarted = "synthesis_started"
	EventCompleted        = "completed"
	EventFailed           = "failed"
)

type Publisher interface {
	Publish(ctx context.Context, campaignID, event string, payload map[string]interface{}) error
}

// Subject returns the subject an event for campaignID is published on.
func Subject(campaignID, event string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectBase, campaignID, event)
}

// NopPublisher drops every event. Used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, map[string]interface{}) error {
	return nil
}

type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

func NewNATSPublisher(natsURL string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("luxegen-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &NATSPublisher{nc: nc, js: js, logger: logger}, nil
}

// EnsureStream creates or updates the campaign event stream.
func (p *NATSPublisher) EnsureStream(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(opCtx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Campaign generation lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	p.logger.Info("ensured NATS stream", "name", StreamName)
	return nil
}

func (p *NATSPublisher) Publish(ctx context.Context, campaignID, event string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, Subject(campaignID, event), data); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (p *NATSPublisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}
