package queuesync

import (
	"sync"
	"time"

	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventType names a change a screen announces to its sinks.
type EventType string

const (
	EventQueueChanged      EventType = "QueueChanged"
	EventSnapshotRefreshed EventType = "SnapshotRefreshed"
	EventCountdownTick     EventType = "CountdownTick"
	EventConnectionStatus  EventType = "ConnectionStatus"
	EventSessionChanged    EventType = "SessionChanged"
)

// Event is one notification from a Screen. Only the fields relevant to Type
// are set.
type Event struct {
	Type        EventType        `json:"type"`
	Version     uint64           `json:"version"`
	Snapshot    *models.Snapshot `json:"snapshot,omitempty"`
	Optimistic  bool             `json:"optimistic,omitempty"`
	SecondsLeft int              `json:"seconds_left"`
	Status      ConnStatus       `json:"status,omitempty"`
	Session     *models.Session  `json:"session,omitempty"`
	At          time.Time        `json:"at"`
}

// Sink receives screen events. Publish is called from scheduler goroutines and
// must not block.
type Sink interface {
	Publish(evt Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(evt Event)

func (f SinkFunc) Publish(evt Event) {
	f(evt)
}

// sinkSet fans events out to every registered sink.
type sinkSet struct {
	mu    sync.RWMutex
	sinks []Sink
}

func (s *sinkSet) add(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *sinkSet) publish(evt Event) {
	s.mu.RLock()
	sinks := s.sinks
	s.mu.RUnlock()
	for _, sink := range sinks {
		sink.Publish(evt)
	}
}

// LogSink writes every event except countdown ticks to the global logger.
type LogSink struct {
	Level zerolog.Level
}

func (l LogSink) Publish(evt Event) {
	if evt.Type == EventCountdownTick {
		return
	}
	e := log.WithLevel(l.Level).
		Str("event", string(evt.Type)).
		Uint64("version", evt.Version)
	switch evt.Type {
	case EventQueueChanged, EventSnapshotRefreshed:
		if evt.Snapshot != nil {
			e = e.Int("queue_len", len(evt.Snapshot.Queue))
		}
		e = e.Bool("optimistic", evt.Optimistic)
	case EventConnectionStatus:
		e = e.Str("status", string(evt.Status))
	case EventSessionChanged:
		if evt.Session != nil {
			e = e.Int("token", evt.Session.Token)
		} else {
			e = e.Bool("cleared", true)
		}
	}
	e.Msg("screen event")
}
