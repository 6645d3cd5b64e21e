package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/slotsync/go/clients"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/rs/zerolog/log"
)

// ActionRequest is the body of POST /api/actions/{action}. Only the fields the
// action needs are read.
type ActionRequest struct {
	Token       int              `json:"token"`
	Direction   models.Direction `json:"direction"`
	Services    []string         `json:"services"`
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`
	ServiceType string           `json:"service_type"`
	// Confirm is the user's explicit yes for reset, delete and leave.
	Confirm bool `json:"confirm"`
}

// ActionResponse reports the outcome along with the screen state after it.
type ActionResponse struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Session *models.Session `json:"session,omitempty"`
	View    queuesync.View  `json:"view"`
}

// ActionHandler turns HTTP requests into dispatcher calls
type ActionHandler struct {
	screen ScreenProvider
}

func NewActionHandler(screen ScreenProvider) *ActionHandler {
	return &ActionHandler{screen: screen}
}

// HandleAction handles POST /api/actions/{action}
func (h *ActionHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	action, err := models.ParseAction(r.PathValue("action"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var req ActionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := h.screen.Allowed(action); err != nil {
		h.respond(w, action, nil, err)
		return
	}

	ctx := r.Context()
	d := h.screen.Dispatcher()
	confirm := queuesync.Confirmed(req.Confirm)

	var sess *models.Session
	switch action {
	case models.ActionJoin:
		sess, err = d.Join(ctx, models.JoinRequest{
			Name:        req.Name,
			Phone:       req.Phone,
			Services:    req.Services,
			ServiceType: req.ServiceType,
		})
	case models.ActionLeave:
		err = d.Leave(ctx, confirm)
	case models.ActionNext:
		err = d.Next(ctx)
	case models.ActionReset:
		err = d.Reset(ctx, confirm)
	case models.ActionMove:
		err = d.Move(ctx, req.Token, req.Direction)
	case models.ActionDelete:
		err = d.Delete(ctx, req.Token, confirm)
	case models.ActionServeNow:
		err = d.ServeNow(ctx, req.Token)
	case models.ActionEdit:
		err = d.Edit(ctx, req.Token, req.Services)
	}
	h.respond(w, action, sess, err)
}

func (h *ActionHandler) respond(w http.ResponseWriter, action models.Action, sess *models.Session, err error) {
	resp := ActionResponse{OK: err == nil, Session: sess, View: h.screen.View()}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status, resp.Code = statusFor(err)
		log.Debug().Err(err).Str("action", string(action)).Int("status", status).Msg("action refused")
	}
	writeJSON(w, status, resp)
}

// statusFor maps dispatcher errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, queuesync.ErrAdminOnly):
		return http.StatusForbidden, "admin_only"
	case errors.Is(err, queuesync.ErrNotConfirmed):
		return http.StatusPreconditionRequired, "confirmation_required"
	case errors.Is(err, queuesync.ErrThrottled):
		return http.StatusTooManyRequests, "throttled"
	case errors.Is(err, queuesync.ErrNotQueued), errors.Is(err, queuesync.ErrNoSession):
		return http.StatusConflict, "not_queued"
	case queuesync.IsPrecondition(err):
		return http.StatusUnprocessableEntity, "invalid"
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		return http.StatusBadGateway, "rejected_by_server"
	default:
		return http.StatusBadGateway, "server_unavailable"
	}
}

// RegisterActionRoutes registers the mutation routes
func (h *ActionHandler) RegisterActionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/actions/{action}", h.HandleAction)
}
