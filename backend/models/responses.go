package models

import (
	"time"

	"github.com/storges/tapminer/tapminer/economy/state"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError represents an API error response
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewSuccessResponse(data any, message string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
}

type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ReferralRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// ActionResult is returned by every action endpoint. A rejected action is
// not an error: it answers with Applied false and the unchanged state.
type ActionResult struct {
	Applied bool           `json:"applied"`
	State   state.Snapshot `json:"state"`
}

type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Sessions int    `json:"sessions"`
	Store    string `json:"store"`
}
