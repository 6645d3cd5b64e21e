package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
)

// ScreenEvent is the envelope every websocket and NATS message uses.
type ScreenEvent struct {
	ID        string          `json:"id"`        // Event UUID
	Screen    string          `json:"screen"`    // Screen name
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType names a screen event on the wire.
type EventType string

const (
	EventTypeQueueChanged      = EventType(queuesync.EventQueueChanged)
	EventTypeSnapshotRefreshed = EventType(queuesync.EventSnapshotRefreshed)
	EventTypeCountdownTick     = EventType(queuesync.EventCountdownTick)
	EventTypeConnectionStatus  = EventType(queuesync.EventConnectionStatus)
	EventTypeSessionChanged    = EventType(queuesync.EventSessionChanged)
	// EventTypeScreenState is sent once to each new websocket client.
	EventTypeScreenState EventType = "ScreenState"
)

// QueuePayload carries a new queue for QueueChanged and SnapshotRefreshed.
type QueuePayload struct {
	Version     uint64            `json:"version"`
	Optimistic  bool              `json:"optimistic"`
	ShopStatus  models.ShopStatus `json:"shop_status,omitempty"`
	Queue       []models.Customer `json:"queue"`
	Waiting     int               `json:"waiting"`
	SecondsLeft int               `json:"seconds_left"`
}

// CountdownTickPayload is the once-a-second local countdown.
type CountdownTickPayload struct {
	SecondsLeft int       `json:"seconds_left"`
	TickedAt    time.Time `json:"ticked_at"`
}

// ConnectionStatusPayload reports the link to the queue server.
type ConnectionStatusPayload struct {
	Status queuesync.ConnStatus `json:"status"`
}

// SessionChangedPayload carries the viewer's session; nil means cleared.
type SessionChangedPayload struct {
	Session *models.Session `json:"session"`
}

// NewScreenEvent wraps a sync engine event for the wire.
func NewScreenEvent(screen string, evt queuesync.Event) (*ScreenEvent, error) {
	var payload any
	switch evt.Type {
	case queuesync.EventQueueChanged, queuesync.EventSnapshotRefreshed:
		p := QueuePayload{
			Version:     evt.Version,
			Optimistic:  evt.Optimistic,
			Queue:       []models.Customer{},
			SecondsLeft: evt.SecondsLeft,
		}
		if evt.Snapshot != nil {
			p.ShopStatus = evt.Snapshot.ShopStatus
			p.Queue = evt.Snapshot.Queue
			p.Waiting = evt.Snapshot.WaitingCount()
		}
		payload = p
	case queuesync.EventCountdownTick:
		payload = CountdownTickPayload{SecondsLeft: evt.SecondsLeft, TickedAt: evt.At}
	case queuesync.EventConnectionStatus:
		payload = ConnectionStatusPayload{Status: evt.Status}
	case queuesync.EventSessionChanged:
		payload = SessionChangedPayload{Session: evt.Session}
	default:
		return nil, fmt.Errorf("unknown event type: %s", evt.Type)
	}
	return newEnvelope(screen, EventType(evt.Type), evt.At, payload)
}

func newEnvelope(screen string, typ EventType, at time.Time, payload any) (*ScreenEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &ScreenEvent{
		ID:        uuid.New().String(),
		Screen:    screen,
		Type:      typ,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *ScreenEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeQueueChanged, EventTypeSnapshotRefreshed:
		var payload QueuePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeCountdownTick:
		var payload CountdownTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeConnectionStatus:
		var payload ConnectionStatusPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionChanged:
		var payload SessionChangedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeScreenState:
		var payload queuesync.View
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
