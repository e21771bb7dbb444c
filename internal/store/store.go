// Package store adapts the Redis key-value service: allow-list membership,
// vehicle records keyed by normalized plate, and per-chat session state.
package store

import (
	"context"
	"strings"

	"platewatch/internal/record"
)

// Gate checks and mutates the user/admin allow-lists. Phone numbers are
// digit-filtered before being used as key material, so formatting never
// affects membership.
type Gate interface {
	IsUser(ctx context.Context, phone string) (bool, error)
	IsAdmin(ctx context.Context, phone string) (bool, error)
	AddUser(ctx context.Context, phone string) error
	RemoveUser(ctx context.Context, phone string) error
	AddAdmin(ctx context.Context, phone string) error
	RemoveAdmin(ctx context.Context, phone string) error
}

// Records reads and writes vehicle records keyed by normalized plate.
type Records interface {
	GetRecord(ctx context.Context, plate string) (record.Record, bool, error)
	PutRecord(ctx context.Context, plate string, rec record.Record) error
}

// Sessions persists per-chat dialogue state across restarts.
type Sessions interface {
	LoadSession(ctx context.Context, chatID int64) (Session, error)
	SaveSession(ctx context.Context, chatID int64, sess Session) error
}

// State names a dialogue state.
type State string

const (
	// StateStart means no verified identity is attached to the chat yet.
	StateStart State = "start"
	// StateAwaitingRequests means the chat holds a verified phone number.
	StateAwaitingRequests State = "awaiting_requests"
)

// Session is the persisted dialogue state for one chat. PhoneNumber is set
// (digits only) once the chat reaches StateAwaitingRequests.
type Session struct {
	State       State  `json:"state"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// DigitsOnly strips everything except ASCII digits from a phone number.
// An empty result is still a legal key.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}
