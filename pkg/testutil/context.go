package testutil

import (
	"context"
	"net/http"
	"time"

	id "ipvcore/pkg/domain"
	"ipvcore/pkg/requestcontext"
)

const headerIpvSessionID = "ipv-session-id"

// WithIpvSession sets the session header the journey and OAuth routes require.
func WithIpvSession(req *http.Request, sessionID string) *http.Request {
	req.Header.Set(headerIpvSessionID, sessionID)
	return req
}

// WithSessionID puts a parsed session id straight into the request context,
// as the session middleware would. Invalid ids are ignored.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	if parsed, err := id.ParseSessionID(sessionID); err == nil {
		return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
	}
	return req
}

// WithClient injects client IP and User-Agent for handlers tested without the
// metadata middleware.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithRequestTime pins the request clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
