package models

import "fmt"

// Direction is the way a move action shifts a customer.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a user supplied direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q: want up or down", s)
}

// Action names one mutation the dispatcher can send to the queue server.
type Action string

const (
	ActionJoin     Action = "join"
	ActionLeave    Action = "leave"
	ActionNext     Action = "next"
	ActionReset    Action = "reset"
	ActionMove     Action = "move"
	ActionDelete   Action = "delete"
	ActionServeNow Action = "serve-now"
	ActionEdit     Action = "edit"
)

// Destructive reports whether the action is irreversible from the client and
// therefore needs explicit confirmation before it is sent.
func (a Action) Destructive() bool {
	switch a {
	case ActionReset, ActionDelete, ActionLeave:
		return true
	}
	return false
}

// AdminOnly reports whether the action belongs to the admin dashboard.
func (a Action) AdminOnly() bool {
	switch a {
	case ActionNext, ActionReset, ActionMove, ActionDelete, ActionServeNow, ActionEdit:
		return true
	}
	return false
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionJoin, ActionLeave, ActionNext, ActionReset, ActionMove, ActionDelete, ActionServeNow, ActionEdit:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// JoinRequest is the payload for adding a customer to the queue.
type JoinRequest struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
	// ServiceType is the single-service field the older server reads.
	ServiceType string `json:"service_type,omitempty"`
}
