package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds configuration for the NATS event publisher
type PublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // e.g. "slotsync.queue"
	Screen        string
	MaxReconnects int
	ReconnectWait time.Duration
	BufferSize    int
}

// DefaultPublisherConfig returns default publisher configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "SLOTSYNC_EVENTS",
		SubjectPrefix: "slotsync.queue",
		Screen:        "front-desk",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		BufferSize:    256,
	}
}

// NATSPublisher forwards queue changes to a JetStream stream so other
// services (notifications, analytics) can follow the queue. Countdown ticks
// are not forwarded.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config PublisherConfig
	ch     chan *ScreenEvent
}

// NewNATSPublisher connects and makes sure the stream exists.
func NewNATSPublisher(ctx context.Context, config PublisherConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("slotsync-" + config.Screen),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              config.StreamName,
		Description:       "SlotSync screen queue events",
		Subjects:          []string{config.SubjectPrefix + ".>"},
		MaxMsgsPerSubject: 100,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", config.StreamName, err)
	}

	if config.BufferSize <= 0 {
		config.BufferSize = DefaultPublisherConfig().BufferSize
	}
	return &NATSPublisher{
		nc:     nc,
		js:     js,
		config: config,
		ch:     make(chan *ScreenEvent, config.BufferSize),
	}, nil
}

// Subject is where events of typ for this screen are published.
func (p *NATSPublisher) Subject(typ EventType) string {
	return SubjectFor(p.config.SubjectPrefix, p.config.Screen, typ)
}

// SubjectFor builds "<prefix>.<screen>.<type>" with the type lower-cased.
func SubjectFor(prefix, screen string, typ EventType) string {
	return fmt.Sprintf("%s.%s.%s", prefix, screen, strings.ToLower(string(typ)))
}

// Publish implements queuesync.Sink. It queues the event and never blocks.
func (p *NATSPublisher) Publish(evt queuesync.Event) {
	if evt.Type == queuesync.EventCountdownTick {
		return
	}
	event, err := NewScreenEvent(p.config.Screen, evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to build event for NATS")
		return
	}
	select {
	case p.ch <- event:
	default:
		log.Warn().Str("event_type", string(event.Type)).Msg("NATS publish buffer full, dropping event")
	}
}

// Start publishes queued events until ctx is done.
func (p *NATSPublisher) Start(ctx context.Context) error {
	log.Info().
		Str("stream", p.config.StreamName).
		Str("prefix", p.config.SubjectPrefix).
		Msg("starting NATS event publisher")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("NATS event publisher shutting down")
			return nil
		case event := <-p.ch:
			if err := p.send(ctx, event); err != nil {
				log.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("failed to publish event")
			}
		}
	}
}

func (p *NATSPublisher) send(ctx context.Context, event *ScreenEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ack, err := p.js.Publish(pubCtx, p.Subject(event.Type), data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return err
	}
	log.Debug().
		Str("event_id", event.ID).
		Str("stream", ack.Stream).
		Uint64("seq", ack.Sequence).
		Msg("event published")
	return nil
}

// Stop closes the NATS connection.
func (p *NATSPublisher) Stop() error {
	log.Info().Msg("stopping NATS event publisher")
	if p.nc != nil {
		p.nc.Drain()
	}
	return nil
}
