package models

import (
	"encoding/json"
	"slices"
	"strings"
)

// CustomerStatus is the display status the server attaches to a customer.
type CustomerStatus string

const (
	CustomerStatusWaiting   CustomerStatus = "waiting"
	CustomerStatusServing   CustomerStatus = "serving"
	CustomerStatusCompleted CustomerStatus = "completed"
)

// Customer is one person waiting in (or being served at the head of) the queue.
type Customer struct {
	Token         int            `json:"token"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone,omitempty"`
	Services      []string       `json:"services"`
	TotalDuration int            `json:"total_duration"` // minutes
	JoinedAt      string         `json:"joined_at,omitempty"`
	Status        CustomerStatus `json:"status,omitempty"`
	CompletedAt   string         `json:"completed_at,omitempty"`
}

// wireCustomer accepts every customer shape the known servers emit.
type wireCustomer struct {
	Token         *int           `json:"token"`
	ID            *int           `json:"id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	PhoneNumber   string         `json:"phone_number"`
	Services      []string       `json:"services"`
	Service       string         `json:"service"`
	TotalDuration int            `json:"total_duration"`
	JoinedAt      string         `json:"joined_at"`
	Status        CustomerStatus `json:"status"`
	CompletedAt   string         `json:"completed_at"`
}

// UnmarshalJSON folds the legacy single-service and id-keyed shapes into the
// canonical Customer.
func (c *Customer) UnmarshalJSON(data []byte) error {
	var w wireCustomer
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = Customer{
		Name:          w.Name,
		Phone:         w.Phone,
		Services:      w.Services,
		TotalDuration: w.TotalDuration,
		JoinedAt:      w.JoinedAt,
		Status:        w.Status,
		CompletedAt:   w.CompletedAt,
	}

	switch {
	case w.Token != nil:
		c.Token = *w.Token
	case w.ID != nil:
		c.Token = *w.ID
	}
	if c.Phone == "" {
		c.Phone = w.PhoneNumber
	}
	if len(c.Services) == 0 && w.Service != "" {
		c.Services = []string{w.Service}
	}
	return nil
}

// Equal reports whether two customers are structurally identical.
func (c Customer) Equal(other Customer) bool {
	return c.Token == other.Token &&
		c.Name == other.Name &&
		c.Phone == other.Phone &&
		c.TotalDuration == other.TotalDuration &&
		c.JoinedAt == other.JoinedAt &&
		c.Status == other.Status &&
		c.CompletedAt == other.CompletedAt &&
		slices.Equal(c.Services, other.Services)
}

// Clone returns a deep copy so callers can mutate the services slice freely.
func (c Customer) Clone() Customer {
	c.Services = slices.Clone(c.Services)
	return c
}

// NormalizeServices trims duplicates and empty names while keeping first-seen order.
func NormalizeServices(services []string) []string {
	seen := make(map[string]bool, len(services))
	out := make([]string, 0, len(services))
	for _, s := range services {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
