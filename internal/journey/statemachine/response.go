package statemachine

import (
	"fmt"
	"net/url"

	journey "ipvcore/internal/journey/models"
)

// ResponseType tags the StepResponse variants.
type ResponseType string

const (
	ResponseTypePage    ResponseType = "page"
	ResponseTypeJourney ResponseType = "journey"
	ResponseTypeCri     ResponseType = "cri"
	ResponseTypeProcess ResponseType = "process"
	ResponseTypeError   ResponseType = "error"
)

// StepResponse is what a state tells the caller to do next. Each variant owns
// its wire shape through Value.
type StepResponse interface {
	Type() ResponseType
	Value() map[string]any
	// MitigationStart names the mitigation a state begins, if any.
	MitigationStart() string
}

type mitigation struct {
	Mitigation string
}

func (m mitigation) MitigationStart() string { return m.Mitigation }

// PageResponse renders a frontend page.
type PageResponse struct {
	mitigation
	PageID  string
	Context string
}

func (PageResponse) Type() ResponseType { return ResponseTypePage }

func (r PageResponse) Value() map[string]any {
	v := map[string]any{"page": r.PageID}
	if r.Context != "" {
		v["context"] = r.Context
	}
	return v
}

// JourneyResponse sends the caller back to the journey endpoint with an event.
type JourneyResponse struct {
	mitigation
	Event string
}

func (JourneyResponse) Type() ResponseType { return ResponseTypeJourney }

func (r JourneyResponse) Value() map[string]any {
	return map[string]any{"journey": journey.JourneyPath(r.Event)}
}

// CriResponse starts an OAuth redirect to a CRI.
type CriResponse struct {
	mitigation
	CriID   string
	Context string
	Scope   string
}

func (CriResponse) Type() ResponseType { return ResponseTypeCri }

func (r CriResponse) Value() map[string]any {
	path := "/cri/" + url.PathEscape(r.CriID) + "/oauth-request"
	q := url.Values{}
	if r.Context != "" {
		q.Set("context", r.Context)
	}
	if r.Scope != "" {
		q.Set("scope", r.Scope)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return map[string]any{"journey": path}
}

// ProcessResponse names a backend process whose outcome is the next event.
type ProcessResponse struct {
	mitigation
	Process string
	Input   map[string]any
}

func (ProcessResponse) Type() ResponseType { return ResponseTypeProcess }

func (r ProcessResponse) Value() map[string]any {
	v := map[string]any{"process": r.Process}
	if len(r.Input) > 0 {
		v["input"] = r.Input
	}
	return v
}

// ErrorResponse is a terminal error page with an HTTP status.
type ErrorResponse struct {
	mitigation
	PageID     string
	StatusCode int
}

func (ErrorResponse) Type() ResponseType { return ResponseTypeError }

func (r ErrorResponse) Value() map[string]any {
	return map[string]any{"type": "error", "page": r.PageID, "statusCode": r.StatusCode}
}

// rawResponse is the YAML shape of every variant.
type rawResponse struct {
	Type            ResponseType   `yaml:"type"`
	PageID          string         `yaml:"pageId"`
	Context         string         `yaml:"context"`
	Event           string         `yaml:"journeyStepId"`
	CriID           string         `yaml:"criId"`
	Scope           string         `yaml:"scope"`
	Process         string         `yaml:"process"`
	Input           map[string]any `yaml:"input"`
	StatusCode      int            `yaml:"statusCode"`
	MitigationStart string         `yaml:"mitigationStart"`
}

func (r *rawResponse) build() (StepResponse, error) {
	if r == nil {
		return nil, nil
	}
	m := mitigation{Mitigation: r.MitigationStart}
	switch r.Type {
	case ResponseTypePage:
		if r.PageID == "" {
			return nil, fmt.Errorf("page response requires pageId")
		}
		return PageResponse{mitigation: m, PageID: r.PageID, Context: r.Context}, nil
	case ResponseTypeJourney:
		if r.Event == "" {
			return nil, fmt.Errorf("journey response requires journeyStepId")
		}
		return JourneyResponse{mitigation: m, Event: r.Event}, nil
	case ResponseTypeCri:
		if r.CriID == "" {
			return nil, fmt.Errorf("cri response requires criId")
		}
		return CriResponse{mitigation: m, CriID: r.CriID, Context: r.Context, Scope: r.Scope}, nil
	case ResponseTypeProcess:
		if r.Process == "" {
			return nil, fmt.Errorf("process response requires process")
		}
		return ProcessResponse{mitigation: m, Process: r.Process, Input: r.Input}, nil
	case ResponseTypeError:
		if r.PageID == "" || r.StatusCode == 0 {
			return nil, fmt.Errorf("error response requires pageId and statusCode")
		}
		return ErrorResponse{mitigation: m, PageID: r.PageID, StatusCode: r.StatusCode}, nil
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}
}
