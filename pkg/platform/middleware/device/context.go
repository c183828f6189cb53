// Package device summarises the caller's User-Agent for audit events.
package device

import (
	"net/http"

	"github.com/mssola/useragent"

	"ipvcore/pkg/requestcontext"
)

// Parse summarises a User-Agent header into browser, os and device type.
func Parse(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	deviceType := "desktop"
	switch {
	case ua.Bot():
		deviceType = "bot"
	case ua.Mobile():
		deviceType = "mobile"
	}
	info := map[string]string{
		"browser":     browser,
		"os":          ua.OS(),
		"device_type": deviceType,
	}
	if version != "" {
		info["browser_version"] = version
	}
	return info
}

// Middleware parses the User-Agent once per request and stores the summary
// in the context. Run it after metadata.ClientMetadata.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if info := Parse(requestcontext.UserAgent(ctx)); info != nil {
			ctx = requestcontext.WithDeviceInformation(ctx, info)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
