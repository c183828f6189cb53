// Package audit defines the audit events the engine emits and the sink
// contract they are written to. Emission is fail-closed: a step that cannot
// record its audit event fails.
package audit

import (
	"context"
	"time"

	id "ipvcore/pkg/domain"
)

// EventName is the wire name of an audit event.
type EventName string

const (
	EventJourneyStart            EventName = "IPV_JOURNEY_START"
	EventSubjourneyStart         EventName = "IPV_SUBJOURNEY_START"
	EventMitigationStart         EventName = "IPV_MITIGATION_START"
	EventRedirectToCri           EventName = "IPV_REDIRECT_TO_CRI"
	EventCriAuthResponseReceived EventName = "IPV_CRI_AUTH_RESPONSE_RECEIVED"
	EventVcReceived              EventName = "IPV_VC_RECEIVED"
	EventGpg45ProfileMatched     EventName = "IPV_GPG45_PROFILE_MATCHED"
	EventIdentityReuseComplete   EventName = "IPV_IDENTITY_REUSE_COMPLETE"
	EventIdentityReuseReset      EventName = "IPV_IDENTITY_REUSE_RESET"
	EventF2FProfileNotMetFail    EventName = "IPV_F2F_PROFILE_NOT_MET_FAIL"
	EventF2FVcReceived           EventName = "F2F_CRI_VC_RECEIVED"
	EventF2FVcConsumed           EventName = "F2F_CRI_VC_CONSUMED"
	EventF2FVcError              EventName = "F2F_CRI_VC_ERROR"
)

// Category groups events for downstream routing. Identity outcomes go to a
// separate topic from journey navigation.
type Category string

const (
	CategoryJourney    Category = "journey"
	CategoryIdentity   Category = "identity"
	CategoryCredential Category = "credential"
)

var eventCategories = map[EventName]Category{
	EventJourneyStart:            CategoryJourney,
	EventSubjourneyStart:         CategoryJourney,
	EventMitigationStart:         CategoryJourney,
	EventRedirectToCri:           CategoryJourney,
	EventCriAuthResponseReceived: CategoryCredential,
	EventVcReceived:              CategoryCredential,
	EventF2FVcReceived:           CategoryCredential,
	EventF2FVcConsumed:           CategoryCredential,
	EventF2FVcError:              CategoryCredential,
	EventGpg45ProfileMatched:     CategoryIdentity,
	EventIdentityReuseComplete:   CategoryIdentity,
	EventIdentityReuseReset:      CategoryIdentity,
	EventF2FProfileNotMetFail:    CategoryIdentity,
}

// Category returns the routing category. Unknown names are journey events.
func (n EventName) Category() Category {
	if c, ok := eventCategories[n]; ok {
		return c
	}
	return CategoryJourney
}

// User identifies who an event is about. All fields are optional; queue
// intake only knows the user id.
type User struct {
	UserID    id.UserID `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	JourneyID string    `json:"govuk_signin_journey_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// Event is one audit record. The publisher fills ID, Timestamp and
// ComponentID; callers set the rest.
type Event struct {
	ID          string         `json:"event_id"`
	Name        EventName      `json:"event_name"`
	ComponentID string         `json:"component_id"`
	Timestamp   time.Time      `json:"timestamp"`
	User        User           `json:"user"`
	Extensions  map[string]any `json:"extensions,omitempty"`
	Restricted  map[string]any `json:"restricted,omitempty"`
}

// New builds an event for the given user with optional extensions.
func New(name EventName, user User, extensions map[string]any) Event {
	return Event{Name: name, User: user, Extensions: extensions}
}

// Store persists audit events. Implementations must return an error when the
// event was not durably accepted.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
