package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const headerIpvSessionID = "ipv-session-id"

// TestContext carries one scenario's HTTP state against a running engine.
type TestContext struct {
	BaseURL string

	client     *http.Client
	sessionID  string
	lastStatus int
	lastBody   map[string]any
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{BaseURL: baseURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (tc *TestContext) Reset() {
	tc.sessionID = ""
	tc.lastStatus = 0
	tc.lastBody = nil
}

func (tc *TestContext) GetSessionID() string         { return tc.sessionID }
func (tc *TestContext) SetSessionID(sessionID string) { tc.sessionID = sessionID }
func (tc *TestContext) GetLastStatus() int            { return tc.lastStatus }

// POST sends body as JSON. The session header is added when headers asks for it.
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// SessionHeaders returns the headers journey calls need.
func (tc *TestContext) SessionHeaders() map[string]string {
	return map[string]string{headerIpvSessionID: tc.sessionID}
}

func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode response %q: %w", raw, err)
		}
	}
	return nil
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	v, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %v", field, tc.lastBody)
	}
	return v, nil
}
