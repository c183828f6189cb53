package models

import (
	"errors"
	"fmt"

	dErrors "ipvcore/pkg/domain-errors"
	"ipvcore/pkg/platform/httputil"
)

// ErrorCode is the stable numeric code returned in journey error bodies. The
// frontend logs it; values never change meaning once released.
type ErrorCode int

const (
	ErrorCodeInternal                   ErrorCode = 1000
	ErrorCodeMissingIpvSessionID        ErrorCode = 1001
	ErrorCodeSessionNotFound            ErrorCode = 1002
	ErrorCodeInvalidRequestBody         ErrorCode = 1003
	ErrorCodeMissingCredentialIssuerID  ErrorCode = 1010
	ErrorCodeInvalidCredentialIssuerID  ErrorCode = 1011
	ErrorCodeMissingAuthorizationCode   ErrorCode = 1012
	ErrorCodeMissingOAuthState          ErrorCode = 1013
	ErrorCodeInvalidOAuthState          ErrorCode = 1014
	ErrorCodeCriDisabled                ErrorCode = 1015
	ErrorCodeFailedToExchangeCode       ErrorCode = 1020
	ErrorCodeFailedToFetchCredential    ErrorCode = 1021
	ErrorCodeFailedToValidateCredential ErrorCode = 1022
	ErrorCodeFailedToSaveCredential     ErrorCode = 1023
	ErrorCodeFailedToGetStoredCis       ErrorCode = 1024
	ErrorCodeFailedToSendAuditEvent     ErrorCode = 1030
	ErrorCodeFailedToSaveSession        ErrorCode = 1031
	ErrorCodeUnknownJourneyEvent        ErrorCode = 1040
	ErrorCodeUnknownJourneyState        ErrorCode = 1041
	ErrorCodeProcessFailed              ErrorCode = 1042
)

// CodedError attaches an ErrorCode to an error chain.
type CodedError struct {
	Code ErrorCode
	Err  error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("journey error %d: %v", e.Code, e.Err)
}

func (e *CodedError) Unwrap() error { return e.Err }

// WithCode tags err with code. A nil err stays nil.
func WithCode(err error, code ErrorCode) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Err: err}
}

// CodeOf returns the outermost ErrorCode in the chain, or ErrorCodeInternal.
func CodeOf(err error) ErrorCode {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorCodeInternal
}

// ErrorBody is the wire shape of a failed journey step.
type ErrorBody struct {
	Journey    string    `json:"journey"`
	StatusCode int       `json:"statusCode"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
}

// ErrorBodyFor builds the response for err. The status follows the domain
// error code; internal errors keep a generic message.
func ErrorBodyFor(err error) (int, ErrorBody) {
	code := dErrors.CodeOf(err)
	status := httputil.StatusFor(code)
	msg := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal && msg == "" {
		msg = "internal error"
	}
	return status, ErrorBody{
		Journey:    JourneyPath(EventError),
		StatusCode: status,
		Code:       CodeOf(err),
		Message:    msg,
	}
}
