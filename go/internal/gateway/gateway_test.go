package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/slotsync/go/clients/queue_client"
	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/session"
)

// queueServer is a minimal queue backend speaking the status and delete endpoints.
type queueServer struct {
	mu      sync.Mutex
	queue   []models.Customer
	deletes []int
}

func (q *queueServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch r.URL.Path {
	case queue_client.StatusEndpoint:
		json.NewEncoder(w).Encode(map[string]any{
			"shop_status":  "Open",
			"queue":        q.queue,
			"seconds_left": 300,
		})
	case queue_client.DeleteEndpoint:
		var body struct {
			Token int `json:"token"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		q.deletes = append(q.deletes, body.Token)
		kept := q.queue[:0]
		for _, c := range q.queue {
			if c.Token != body.Token {
				kept = append(kept, c)
			}
		}
		q.queue = kept
		w.Write([]byte(`{"message":"deleted"}`))
	default:
		http.NotFound(w, r)
	}
}

func (q *queueServer) deleted() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int(nil), q.deletes...)
}

type harness struct {
	backend *queueServer
	screen  *queuesync.Screen
	journal *journal.MemoryJournal
	service *Service
	server  *httptest.Server
}

func newHarness(t *testing.T, mode queuesync.Mode) *harness {
	t.Helper()
	backend := &queueServer{queue: []models.Customer{
		{Token: 1, Name: "Ada", Services: []string{"Haircut"}, TotalDuration: 20},
		{Token: 2, Name: "Bo", Services: []string{"Shave"}, TotalDuration: 10},
	}}
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	client := queue_client.NewQueueClient(upstream.URL, "gateway-test")
	j := journal.NewMemoryJournal(10)
	config := queuesync.DefaultScreenConfig()
	config.Mode = mode
	screen := queuesync.NewScreen(config, queuesync.ScreenDeps{
		Fetcher:  client,
		Writer:   client,
		Store:    session.NewMemoryStore(),
		Recorder: j,
	})
	if err := screen.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}

	gwConfig := DefaultConfig()
	gwConfig.Screen = "test-screen"
	service := NewService(gwConfig, screen, j)
	screen.AddSink(service)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &harness{backend: backend, screen: screen, journal: j, service: service, server: server}
}

func (h *harness) post(t *testing.T, action string, body any) (int, ActionResponse) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(h.server.URL+"/api/actions/"+action, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", action, err)
	}
	defer resp.Body.Close()

	var out ActionResponse
	if resp.StatusCode != http.StatusNotFound {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s response: %v", action, err)
		}
	}
	return resp.StatusCode, out
}

func TestStateEndpointServesView(t *testing.T) {
	h := newHarness(t, queuesync.ModeAdmin)

	resp, err := http.Get(h.server.URL + "/api/screen/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()

	var view queuesync.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.Ready || len(view.Queue) != 2 || view.SecondsLeft != 300 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Queue[1].WaitMinutes != 20 {
		t.Fatalf("second customer should wait 20 minutes, got %d", view.Queue[1].WaitMinutes)
	}
}

func TestCustomerScreenCannotRunAdminActions(t *testing.T) {
	h := newHarness(t, queuesync.ModeCustomer)

	status, resp := h.post(t, "delete", ActionRequest{Token: 1, Confirm: true})
	if status != http.StatusForbidden || resp.Code != "admin_only" {
		t.Fatalf("expected 403 admin_only, got %d %+v", status, resp)
	}
	if got := h.backend.deleted(); len(got) != 0 {
		t.Fatalf("nothing should reach the server, got deletes %v", got)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, queuesync.ModeAdmin)

	status, resp := h.post(t, "delete", ActionRequest{Token: 1})
	if status != http.StatusPreconditionRequired || resp.Code != "confirmation_required" {
		t.Fatalf("expected 428, got %d %+v", status, resp)
	}
	if got := h.backend.deleted(); len(got) != 0 {
		t.Fatalf("unconfirmed delete reached the server: %v", got)
	}

	status, resp = h.post(t, "delete", ActionRequest{Token: 1, Confirm: true})
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("confirmed delete failed: %d %+v", status, resp)
	}
	if got := h.backend.deleted(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected exactly one delete of #1, got %v", got)
	}

	entries, err := h.journal.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 2 || entries[0].Outcome != journal.OutcomeOK || entries[1].Outcome != journal.OutcomeRejected {
		t.Fatalf("unexpected journal %+v", entries)
	}
}

func TestUnknownTokenAndActionAreRefused(t *testing.T) {
	h := newHarness(t, queuesync.ModeAdmin)

	status, resp := h.post(t, "serve-now", ActionRequest{Token: 99})
	if status != http.StatusUnprocessableEntity || resp.Code != "invalid" {
		t.Fatalf("expected 422 for unknown token, got %d %+v", status, resp)
	}

	status, resp = h.post(t, "move", ActionRequest{Token: 2, Direction: "sideways"})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad direction, got %d %+v", status, resp)
	}

	if status, _ := h.post(t, "teleport", ActionRequest{}); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", status)
	}
}

func TestJournalEndpoint(t *testing.T) {
	h := newHarness(t, queuesync.ModeAdmin)
	h.post(t, "delete", ActionRequest{Token: 2, Confirm: true})

	resp, err := http.Get(h.server.URL + "/api/journal?limit=5")
	if err != nil {
		t.Fatalf("get journal: %v", err)
	}
	defer resp.Body.Close()
	var entries []journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != models.ActionDelete || *entries[0].Token != 2 {
		t.Fatalf("unexpected journal %+v", entries)
	}

	bad, err := http.Get(h.server.URL + "/api/journal?limit=zero")
	if err != nil {
		t.Fatalf("get journal: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", bad.StatusCode)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) *ScreenEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event ScreenEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return &event
}

func TestWebSocketGetsStateThenBroadcasts(t *testing.T) {
	h := newHarness(t, queuesync.ModeAdmin)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.service.Start(ctx)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/screen?viewer=tv"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readEvent(t, conn)
	if first.Type != EventTypeScreenState || first.Screen != "test-screen" {
		t.Fatalf("expected screen state first, got %+v", first)
	}
	payload, err := ParseEventPayload(first)
	if err != nil {
		t.Fatalf("parse state: %v", err)
	}
	if view := payload.(queuesync.View); len(view.Queue) != 2 {
		t.Fatalf("state should carry the queue, got %+v", view)
	}

	snap, version := h.screen.Snapshot()
	h.service.Publish(queuesync.Event{Type: queuesync.EventQueueChanged, Version: version, Snapshot: snap, SecondsLeft: 42})

	next := readEvent(t, conn)
	if next.Type != EventTypeQueueChanged {
		t.Fatalf("expected QueueChanged, got %s", next.Type)
	}
	payload, err = ParseEventPayload(next)
	if err != nil {
		t.Fatalf("parse queue: %v", err)
	}
	if q := payload.(QueuePayload); len(q.Queue) != 2 || q.SecondsLeft != 42 || q.Waiting != 2 {
		t.Fatalf("unexpected queue payload %+v", q)
	}
}

func TestNewScreenEventRejectsUnknownType(t *testing.T) {
	if _, err := NewScreenEvent("s", queuesync.Event{Type: "Bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}

	evt, err := NewScreenEvent("s", queuesync.Event{Type: queuesync.EventConnectionStatus, Status: queuesync.ConnStatusReconnecting})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	payload, err := ParseEventPayload(evt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.(ConnectionStatusPayload).Status != queuesync.ConnStatusReconnecting {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSubjectFor(t *testing.T) {
	if got := SubjectFor("slotsync.queue", "front-desk", EventTypeQueueChanged); got != "slotsync.queue.front-desk.queuechanged" {
		t.Fatalf("unexpected subject %s", got)
	}
}
