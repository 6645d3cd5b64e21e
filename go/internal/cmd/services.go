package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/slotsync/go/clients/queue_client"
	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/gateway"
	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Screen    *queuesync.Screen
	Gateway   *gateway.Service
	Publisher *gateway.NATSPublisher
	Journal   journal.Journal

	closers []func()
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Queue client → stores → screen → sinks

	client := queue_client.NewQueueClient(cfg.Server.URL, cfg.Server.ClientName)
	s := &Services{}

	store, closeStore, err := setupSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeStore)

	j, closeJournal, err := setupJournal(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Journal = j
	s.closers = append(s.closers, closeJournal)

	s.Screen = queuesync.NewScreen(cfg.ScreenConfig(), queuesync.ScreenDeps{
		Fetcher:  client,
		Writer:   client,
		Store:    store,
		Recorder: j,
	})

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.Screen = cfg.Screen.Name
	s.Gateway = gateway.NewService(gatewayConfig, s.Screen, j)
	s.Screen.AddSink(s.Gateway)
	s.Screen.AddSink(queuesync.LogSink{Level: zerolog.DebugLevel})

	if cfg.NATS.URL != "" {
		pubConfig := gateway.DefaultPublisherConfig()
		pubConfig.URL = cfg.NATS.URL
		pubConfig.SubjectPrefix = cfg.NATS.Subject
		pubConfig.Screen = cfg.Screen.Name
		publisher, err := gateway.NewNATSPublisher(ctx, pubConfig)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up NATS publisher: %w", err)
		}
		s.Publisher = publisher
		s.closers = append(s.closers, func() { publisher.Stop() })
		s.Screen.AddSink(publisher)
	}

	return s, nil
}

// Close releases stores and connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	log.Debug().Msg("services closed")
}
