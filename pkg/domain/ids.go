package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "ipvcore/pkg/domain-errors"
)

// SessionID identifies one IPV session (one journey attempt).
type SessionID uuid.UUID

// ClientOAuthSessionID identifies the relying-party authorization bound to a session.
type ClientOAuthSessionID uuid.UUID

// UserID is the relying-party subject, usually of the form "urn:uuid:<uuid>".
// It is opaque to this service.
type UserID string

// CriID names a credential issuer (e.g. "ukPassport", "fraud", "f2f").
type CriID string

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewClientOAuthSessionID returns a fresh random client session id.
func NewClientOAuthSessionID() ClientOAuthSessionID { return ClientOAuthSessionID(uuid.New()) }

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ClientOAuthSessionID) String() string { return uuid.UUID(id).String() }
func (id ClientOAuthSessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string { return string(id) }
func (id UserID) IsNil() bool    { return strings.TrimSpace(string(id)) == "" }

func (id CriID) String() string { return string(id) }
func (id CriID) IsNil() bool    { return strings.TrimSpace(string(id)) == "" }

// ParseSessionID validates a session id at a trust boundary.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseClientOAuthSessionID validates a client oauth session id.
func ParseClientOAuthSessionID(s string) (ClientOAuthSessionID, error) {
	u, err := parseUUID(s, "client oauth session id")
	if err != nil {
		return ClientOAuthSessionID{}, err
	}
	return ClientOAuthSessionID(u), nil
}

// ParseUserID rejects blank subjects; the value is otherwise kept as-is.
func ParseUserID(s string) (UserID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	return UserID(trimmed), nil
}

// ParseCriID rejects blank issuer ids.
func ParseCriID(s string) (CriID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential issuer id is required")
	}
	return CriID(trimmed), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

// MarshalText keeps session ids readable in JSON and redis payloads.
func (id SessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *SessionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id ClientOAuthSessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ClientOAuthSessionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
