// Package models holds the per-journey session records kept in the session
// store.
package models

import (
	"slices"
	"time"

	evidence "ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

// Entry point for every new session.
const (
	InitialJourneyType = "INITIAL_JOURNEY_SELECTION"
	InitialUserState   = "START"
)

// IpvSession is the mutable record of one identity journey attempt.
type IpvSession struct {
	ID                   id.SessionID            `json:"id"`
	ClientOAuthSessionID id.ClientOAuthSessionID `json:"clientOAuthSessionId"`
	// CriOAuthSessionID is the state of the CRI redirect in flight, if any.
	CriOAuthSessionID string              `json:"criOAuthSessionId,omitempty"`
	UserState         string              `json:"userState"`
	JourneyType       string              `json:"journeyType"`
	Vot               evidence.Vot        `json:"vot,omitempty"`
	CiFail            bool                `json:"ciFail"`
	VisitedCris       []VisitedCri        `json:"visitedCris,omitempty"`
	VcStatuses        []evidence.VcStatus `json:"vcStatuses,omitempty"`
	ErrorCode         string              `json:"errorCode,omitempty"`
	ErrorDescription  string              `json:"errorDescription,omitempty"`
	FeatureSet        string              `json:"featureSet,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// VisitedCri records one return from a CRI.
type VisitedCri struct {
	CriID          id.CriID `json:"criId"`
	ReturnedWithVc bool     `json:"returnedWithVc"`
	OAuthError     string   `json:"oauthError,omitempty"`
}

// NewIpvSession starts a session at the initial journey.
func NewIpvSession(clientSessionID id.ClientOAuthSessionID, now time.Time) *IpvSession {
	return &IpvSession{
		ID:                   id.NewSessionID(),
		ClientOAuthSessionID: clientSessionID,
		UserState:            InitialUserState,
		JourneyType:          InitialJourneyType,
		CreatedAt:            now,
	}
}

// AddVisitedCri appends a visit. Repeat visits are kept.
func (s *IpvSession) AddVisitedCri(v VisitedCri) {
	s.VisitedCris = append(s.VisitedCris, v)
}

// HasVisited reports whether the CRI returned at least once.
func (s *IpvSession) HasVisited(cri id.CriID) bool {
	return slices.ContainsFunc(s.VisitedCris, func(v VisitedCri) bool { return v.CriID == cri })
}

// SetError records an OAuth-style error to return to the relying party.
func (s *IpvSession) SetError(code, description string) {
	s.ErrorCode = code
	s.ErrorDescription = description
}

// HasTimedOut reports whether the session is older than ttl.
func (s *IpvSession) HasTimedOut(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) > ttl
}

// ClientOAuthSession is the relying party's authorization request. It is
// written once and never changed.
type ClientOAuthSession struct {
	ID              id.ClientOAuthSessionID `json:"id"`
	UserID          id.UserID               `json:"userId"`
	ClientID        string                  `json:"clientId"`
	RedirectURI     string                  `json:"redirectUri"`
	State           string                  `json:"state"`
	ResponseType    string                  `json:"responseType,omitempty"`
	Scope           string                  `json:"scope,omitempty"`
	JourneyID       string                  `json:"govukSigninJourneyId"`
	Vtr             []string                `json:"vtr"`
	ReproveIdentity bool                    `json:"reproveIdentity"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// RequestedVots returns the vtr entries in order, skipping unknown values.
func (c *ClientOAuthSession) RequestedVots() []evidence.Vot {
	out := make([]evidence.Vot, 0, len(c.Vtr))
	for _, v := range c.Vtr {
		if vot, err := evidence.ParseVot(v); err == nil {
			out = append(out, vot)
		}
	}
	return out
}

// CriOAuthSession correlates a CRI callback with the session that started
// the redirect. Keyed by State.
type CriOAuthSession struct {
	State                string                  `json:"state"`
	CriID                id.CriID                `json:"criId"`
	IpvSessionID         id.SessionID            `json:"ipvSessionId"`
	ClientOAuthSessionID id.ClientOAuthSessionID `json:"clientOAuthSessionId"`
	CreatedAt            time.Time               `json:"createdAt"`
}
