package model

import (
	"time"

	"floorsync/pkg/constants"
)

// StatusDefinition an operational state a session can be in (setup, production, stoppage...)
type StatusDefinition struct {
	ID        string               `json:"id"`
	Label     string               `json:"label"`
	Kind      constants.StatusKind `json:"kind"`
	CreatedAt time.Time            `json:"created_at"`
}

// StatusEvent a time-boxed interval a session spent in one status
type StatusEvent struct {
	ID                 string     `json:"id"`
	SessionID          string     `json:"session_id"`
	StatusDefinitionID string     `json:"status_definition_id"`
	Reason             string     `json:"reason,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at"`
	Note               string     `json:"note,omitempty"`
}

// StatusChangeRequest worker request to switch the session's status
type StatusChangeRequest struct {
	StatusDefinitionID string `json:"status_definition_id" binding:"required"`
	Reason             string `json:"reason,omitempty"`
	Note               string `json:"note,omitempty"`
}

// QuantityReport worker report of produced units
type QuantityReport struct {
	Good  int64 `json:"good"`
	Scrap int64 `json:"scrap"`
}

// ReclaimResponse sweep invocation result
type ReclaimResponse struct {
	OK     bool   `json:"ok"`
	Closed int    `json:"closed"`
	Error  string `json:"error,omitempty"`
}
