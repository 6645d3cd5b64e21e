package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/session"
	"github.com/rs/zerolog/log"
)

func setupSessionStore(ctx context.Context, cfg *config.Config) (queuesync.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendFile:
		store, err := session.NewFileStore(cfg.Session.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session file: %w", err)
		}
		log.Info().Str("path", cfg.Session.File).Msg("session stored on disk")
		return store, func() {}, nil

	case config.SessionBackendRedis:
		store, err := session.NewRedisStore(ctx, cfg.Session.Redis, cfg.Screen.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Str("addr", cfg.Session.Redis.Addr).Msg("session stored in redis")
		return store, func() { store.Close() }, nil

	case config.SessionBackendPostgres:
		store, err := session.NewPostgresStore(ctx, cfg.Database.DSN(), cfg.Screen.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().
			Str("database", cfg.Database.Database).
			Str("host", cfg.Database.Host).
			Msg("session stored in postgres")
		return store, store.Close, nil

	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

func setupJournal(ctx context.Context, cfg *config.Config) (journal.Journal, func(), error) {
	if cfg.Journal.Backend != config.JournalBackendPostgres {
		return journal.NewMemoryJournal(cfg.Journal.Capacity), func() {}, nil
	}

	j, err := journal.OpenPostgres(ctx, cfg.Database.DSN(), cfg.Screen.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open action journal: %w", err)
	}
	log.Info().
		Str("database", cfg.Database.Database).
		Str("host", cfg.Database.Host).
		Msg("action journal stored in postgres")
	return j, func() { j.Close() }, nil
}
