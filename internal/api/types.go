package api

import (
	"encoding/json"
	"time"
)

// ActionRequest is the JSON body for POST /actions.
type ActionRequest struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Message is one chat turn in POST /messages.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MessageRequest is the JSON body for POST /messages.
type MessageRequest struct {
	Messages []Message      `json:"messages"`
	Context  map[string]any `json:"context,omitempty"`
}

// MessageResponse is returned by POST /messages.
type MessageResponse struct {
	Messages []Message `json:"messages"`
}

// AgentsResponse is returned by GET /agents.
type AgentsResponse struct {
	Agents []string `json:"agents"`
}

// AuditEntryResponse is one row of GET /audit.
type AuditEntryResponse struct {
	ID         string    `json:"id"`
	Tenant     string    `json:"tenant"`
	Action     string    `json:"action"`
	Digest     string    `json:"digest,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	AgentsRegistered int    `json:"agents_registered"`
}
