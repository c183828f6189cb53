// Package models holds the request and response shapes of the CRI callback
// endpoints.
package models

import (
	"strings"

	id "ipvcore/pkg/domain"
)

// OAuth error codes a CRI may return on the redirect (RFC 6749 4.1.2.1).
const (
	OAuthErrorInvalidRequest          = "invalid_request"
	OAuthErrorUnauthorizedClient      = "unauthorized_client"
	OAuthErrorAccessDenied            = "access_denied"
	OAuthErrorUnsupportedResponseType = "unsupported_response_type"
	OAuthErrorInvalidScope            = "invalid_scope"
	OAuthErrorServerError             = "server_error"
	OAuthErrorTemporarilyUnavailable  = "temporarily_unavailable"
)

// KnownOAuthError reports whether code is one of the RFC 6749 redirect errors.
func KnownOAuthError(code string) bool {
	switch code {
	case OAuthErrorInvalidRequest, OAuthErrorUnauthorizedClient, OAuthErrorAccessDenied,
		OAuthErrorUnsupportedResponseType, OAuthErrorInvalidScope, OAuthErrorServerError,
		OAuthErrorTemporarilyUnavailable:
		return true
	}
	return false
}

// CallbackRequest is the CRI redirect as relayed by the frontend.
type CallbackRequest struct {
	CredentialIssuerID string `json:"credentialIssuerId"`
	AuthorizationCode  string `json:"authorizationCode"`
	State              string `json:"state"`
	IpvSessionID       string `json:"ipvSessionId"`
	RedirectURI        string `json:"redirectUri,omitempty"`
	Error              string `json:"error,omitempty"`
	ErrorDescription   string `json:"errorDescription,omitempty"`
}

// Normalize trims every field. Field checks happen in the service because
// they depend on the issuer registry.
func (r *CallbackRequest) Normalize() {
	r.CredentialIssuerID = strings.TrimSpace(r.CredentialIssuerID)
	r.AuthorizationCode = strings.TrimSpace(r.AuthorizationCode)
	r.State = strings.TrimSpace(r.State)
	r.IpvSessionID = strings.TrimSpace(r.IpvSessionID)
	r.Error = strings.TrimSpace(r.Error)
}

// HasError reports whether the CRI returned an OAuth error instead of a code.
func (r *CallbackRequest) HasError() bool {
	return r.Error != ""
}

// OAuthRequestInput asks for a redirect to a CRI from the current session.
type OAuthRequestInput struct {
	SessionID id.SessionID
	CriID     id.CriID
	Context   string
	Scope     string
}

// OAuthRequest is the response of the oauth-request endpoint.
type OAuthRequest struct {
	Cri OAuthRedirect `json:"cri"`
}

// OAuthRedirect is where the frontend sends the user.
type OAuthRedirect struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}
