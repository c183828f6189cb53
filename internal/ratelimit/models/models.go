package models

import (
	"fmt"
	"time"
)

// EndpointClass groups routes that share a per-IP request budget.
type EndpointClass string

const (
	// ClassSession covers session initialisation.
	ClassSession EndpointClass = "session"
	// ClassCallback covers CRI callbacks and OAuth request building.
	ClassCallback EndpointClass = "callback"
	// ClassJourney covers journey events.
	ClassJourney EndpointClass = "journey"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassSession, ClassCallback, ClassJourney:
		return true
	}
	return false
}

// Limit is a request budget per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Key builds the bucket key for an identifier within a class.
func Key(class EndpointClass, identifier string) string {
	return fmt.Sprintf("ip:%s:%s", class, identifier)
}

// ExceededResponse is written with a 429.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
