// Package maps embeds the journey maps shipped with the service.
package maps

import "embed"

// Journey type names used outside the maps themselves.
const (
	InitialJourneySelection = "INITIAL_JOURNEY_SELECTION"
	NewP2Identity           = "NEW_P2_IDENTITY"
	SessionTimeout          = "SESSION_TIMEOUT"
	TechnicalError          = "TECHNICAL_ERROR"

	// SessionTimeoutState is the entry state a timed-out session is moved to.
	SessionTimeoutState = "CORE_SESSION_TIMEOUT"
)

//go:embed *.yaml
var FS embed.FS
