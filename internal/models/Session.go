package models

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of an UploadSession
type SessionStatus string

const (
	// StatusPending is set on creation, until the owner confirms the upload
	StatusPending SessionStatus = "pending"
	// StatusProcessing is set once the owner confirmed and the job is being dispatched or running
	StatusProcessing SessionStatus = "processing"
	// StatusCompleted indicates that at least one file was uploaded
	StatusCompleted SessionStatus = "completed"
	// StatusFailed indicates that the dispatch failed or no file could be uploaded
	StatusFailed SessionStatus = "failed"
	// StatusCancelled indicates that the owner cancelled the session
	StatusCancelled SessionStatus = "cancelled"
)

// IsTerminal returns true if no further transition is possible
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsValid returns true if s is one of the known states
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo returns true if the state machine allows moving from s to next
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next.IsTerminal()
	}
	return false
}

// Icon returns the symbol used in the status overview
func (s SessionStatus) Icon() string {
	switch s {
	case StatusPending:
		return "⏸"
	case StatusProcessing:
		return "🔄"
	case StatusCompleted:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusCancelled:
		return "🚫"
	}
	return "❓"
}

// UploadSession is a request by a user to move one or more files to a hosting service
type UploadSession struct {
	Id        string        `json:"id"`
	Owner     string        `json:"owner"`
	Service   Service       `json:"service"`
	Files     []FileRef     `json:"files"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	// ChatId and MessageId point to the status message, once the session was confirmed
	ChatId    int64 `json:"chat_id"`
	MessageId int   `json:"message_id"`
}

// Elapsed returns the time passed since the session was created, rounded to seconds
func (s *UploadSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt).Truncate(time.Second)
}

// ToPayload creates the dispatch payload for the worker
func (s *UploadSession) ToPayload() Payload {
	return Payload{
		SessionId: s.Id,
		Service:   s.Service,
		Files:     s.Files,
		Owner:     s.Owner,
		ChatId:    s.ChatId,
		MessageId: s.MessageId,
	}
}

func (s *UploadSession) String() string {
	return fmt.Sprintf("session %s (%s, %d file(s), %s)", s.Id, s.Service, len(s.Files), s.Status)
}
