package models

// Journey events produced by the decision components and consumed by the
// journey maps. Values are the event names used in the YAML maps.
const (
	EventNext                   = "next"
	EventError                  = "error"
	EventAccessDenied           = "access-denied"
	EventTemporarilyUnavailable = "temporarily-unavailable"
	EventPyiNoMatch             = "pyi-no-match"
	EventPyiKbvFail             = "pyi-kbv-fail"
	EventFailWithNoCI           = "fail-with-no-ci"
	EventFailWithCI             = "fail-with-ci"
	EventReuse                  = "reuse"
	EventResetIdentity          = "reset-identity"
	EventPending                = "pending"
	EventF2FFail                = "f2f-fail"
	EventMet                    = "met"
	EventUnmet                  = "unmet"

	// EventStartFresh starts a new medium-confidence identity journey.
	EventStartFresh = "ipv-gpg45-medium"

	// EventEndSession hands control back to the relying party; the engine does
	// not transition on it.
	EventEndSession = "build-client-oauth-response"

	// mitigation events are prefixed so the journey service can audit them.
	MitigationEventPrefix = "mitigation-"
)

// Pages the engine routes to outside of a journey map transition.
const (
	PageAttemptRecovery = "pyi-attempt-recovery"
	PageTechnicalError  = "pyi-technical"
)

// JourneyPath renders an event as the frontend journey path ("/journey/next").
func JourneyPath(event string) string {
	return "/journey/" + event
}

// Backend processes named by process states in the journey maps.
const (
	ProcessCheckExistingIdentity = "check-existing-identity"
	ProcessEvaluateGpg45Scores   = "evaluate-gpg45-scores"
)
