package queue_client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// joinWire is the join answer; servers send either your_token/your_name or
// token/name.
type joinWire struct {
	Message   string `json:"message"`
	YourToken *int   `json:"your_token"`
	YourName  string `json:"your_name"`
	Token     *int   `json:"token"`
	Name      string `json:"name"`
}

type tokenRequest struct {
	Token int `json:"token"`
}

type moveRequest struct {
	Token     int              `json:"token"`
	Direction models.Direction `json:"direction"`
}

type editRequest struct {
	Token    int      `json:"token"`
	Services []string `json:"services"`
}

func (c *QueueClient) Status(ctx context.Context) (*models.Snapshot, error) {
	body, err := c.Get(ctx, StatusEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue status: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return &snap, nil
}

// Join appends a new customer and returns the caller's own assigned identity.
func (c *QueueClient) Join(ctx context.Context, req models.JoinRequest) (*models.Session, error) {
	if req.ServiceType == "" && len(req.Services) > 0 {
		req.ServiceType = req.Services[0]
	}

	body, err := c.PostJSON(ctx, JoinEndpoint, req)
	if err != nil {
		return nil, fmt.Errorf("failed to join queue: %w", err)
	}

	var wire joinWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	resp := &models.Session{Name: wire.YourName}
	switch {
	case wire.YourToken != nil:
		resp.Token = *wire.YourToken
	case wire.Token != nil:
		resp.Token = *wire.Token
	default:
		return nil, fmt.Errorf("join response carries no token: %s", string(body))
	}
	if resp.Name == "" {
		resp.Name = wire.Name
	}
	if resp.Name == "" {
		resp.Name = req.Name
	}

	return resp, nil
}

func (c *QueueClient) Leave(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, LeaveEndpoint, tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}
	return nil
}

func (c *QueueClient) Next(ctx context.Context) error {
	if _, err := c.PostJSON(ctx, NextEndpoint, nil); err != nil {
		return fmt.Errorf("failed to call next: %w", err)
	}
	return nil
}

func (c *QueueClient) Reset(ctx context.Context) error {
	if _, err := c.PostJSON(ctx, ResetEndpoint, nil); err != nil {
		return fmt.Errorf("failed to reset queue: %w", err)
	}
	return nil
}

func (c *QueueClient) Move(ctx context.Context, token int, direction models.Direction) error {
	if _, err := c.PostJSON(ctx, MoveEndpoint, moveRequest{Token: token, Direction: direction}); err != nil {
		return fmt.Errorf("failed to move token %d %s: %w", token, direction, err)
	}
	return nil
}

func (c *QueueClient) Delete(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, DeleteEndpoint, tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to delete token %d: %w", token, err)
	}
	return nil
}

func (c *QueueClient) ServeNow(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, ServeNowEndpoint, tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to serve token %d now: %w", token, err)
	}
	return nil
}

func (c *QueueClient) Edit(ctx context.Context, token int, services []string) error {
	if _, err := c.PostJSON(ctx, EditEndpoint, editRequest{Token: token, Services: services}); err != nil {
		return fmt.Errorf("failed to edit token %d: %w", token, err)
	}
	return nil
}
