package model

import (
	"time"

	"floorsync/pkg/constants"
)

// Frame one message on the session stream
type Frame struct {
	Type      string     `json:"type"`
	Sessions  []*Session `json:"sessions,omitempty"`
	Session   *Session   `json:"session,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// PipelineFrame one message on a session's pipeline context stream
type PipelineFrame struct {
	Type    string           `json:"type"`
	Context *PipelineContext `json:"context,omitempty"`
	Message string           `json:"message,omitempty"`
}

// ChangeKind what happened to a session row
type ChangeKind string

const (
	ChangeInsert ChangeKind = ChangeKind(constants.FrameInsert)
	ChangeUpdate ChangeKind = ChangeKind(constants.FrameUpdate)
	ChangeDelete ChangeKind = ChangeKind(constants.FrameDelete)
)

// ChangeEvent announcement that a session row was written by some replica
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	SessionID string     `json:"session_id"`
	At        time.Time  `json:"at"`
}

// InitialFrame builds the frame replacing a client's whole view
func InitialFrame(sessions []*Session) *Frame {
	if sessions == nil {
		sessions = []*Session{}
	}
	return &Frame{Type: constants.FrameInitial, Sessions: sessions}
}

// ErrorFrame builds an application-level error frame
func ErrorFrame(message string) *Frame {
	return &Frame{Type: constants.FrameError, Message: message}
}
