package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/rs/zerolog/log"
)

// Service exposes one running screen to browsers: a websocket feed of its
// events plus the state, action and journal endpoints.
type Service struct {
	name              string
	screen            ScreenProvider
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	actionHandler     *ActionHandler
}

// Config holds configuration for the screen gateway service
type Config struct {
	Screen           string
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		Screen:           "front-desk",
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

func NewService(config Config, screen ScreenProvider, j journal.Journal) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	s := &Service{
		name:              config.Screen,
		screen:            screen,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(screen, j),
		actionHandler:     NewActionHandler(screen),
	}
	connectionManager.onConnect = s.sendState
	return s
}

// Start runs the broadcast loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Str("screen", s.name).Msg("starting screen gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Str("screen", s.name).Msg("screen gateway service stopped")
}

// Publish implements queuesync.Sink by broadcasting to every websocket.
func (s *Service) Publish(evt queuesync.Event) {
	event, err := NewScreenEvent(s.name, evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to build screen event")
		return
	}
	s.connectionManager.Broadcast(event)
}

// sendState greets a new connection with the full view.
func (s *Service) sendState(conn *Connection) {
	event, err := newEnvelope(s.name, EventTypeScreenState, time.Time{}, s.screen.View())
	if err != nil {
		log.Error().Err(err).Msg("failed to build screen state event")
		return
	}
	if err := s.connectionManager.SendTo(conn, event); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("failed to send screen state")
	}
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	s.actionHandler.RegisterActionRoutes(mux)
	log.Info().Str("screen", s.name).Msg("screen gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "screen_gateway"
	stats["screen"] = s.name
	return stats
}
