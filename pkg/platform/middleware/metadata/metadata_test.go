package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ipvcore/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "frontend header wins", headers: map[string]string{"ip-address": "1.2.3.4", "X-Forwarded-For": "9.9.9.9"}, want: "1.2.3.4"},
		{name: "first forwarded address", headers: map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, want: "5.6.7.8"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": "8.8.8.8"}, want: "8.8.8.8"},
		{name: "ipv6 remote addr", remote: "[::1]:443", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("ip-address", "1.1.1.1")
	r.Header.Set("User-Agent", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "1.1.1.1", gotIP)
	assert.Equal(t, "test-agent", gotUA)
}
