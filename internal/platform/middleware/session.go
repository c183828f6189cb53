package middleware

import (
	"log/slog"
	"net/http"

	id "ipvcore/pkg/domain"
	"ipvcore/pkg/requestcontext"
)

// Headers set by the frontend on every journey call.
const (
	HeaderIpvSessionID = "ipv-session-id"
	HeaderFeatureSet   = "feature-set"
)

// RequireIpvSession parses the ipv-session-id header into the context. A
// missing or malformed id is rejected before the handler runs.
func RequireIpvSession(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sessionID, err := id.ParseSessionID(r.Header.Get(HeaderIpvSessionID))
			if err != nil {
				logger.WarnContext(ctx, "missing or invalid ipv session id",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"bad_request","error_description":"missing or invalid ipv-session-id header"}`))
				return
			}
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			if fs := r.Header.Get(HeaderFeatureSet); fs != "" {
				ctx = requestcontext.WithFeatureSet(ctx, fs)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
