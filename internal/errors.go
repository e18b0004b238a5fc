package portfolio_contact

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies why a submission was not accepted.
type ErrorKind string

const (
	KindMethodNotAllowed   ErrorKind = "method_not_allowed"
	KindMissingField       ErrorKind = "missing_field"
	KindInvalidEmail       ErrorKind = "invalid_email"
	KindInvalidPhone       ErrorKind = "invalid_phone"
	KindInvalidInquiryType ErrorKind = "invalid_inquiry"
	KindSubjectTooLong     ErrorKind = "subject_too_long"
	KindMessageTooLong     ErrorKind = "message_too_long"
	KindSpamDetected       ErrorKind = "spam_detected"
	KindRateLimited        ErrorKind = "rate_limit"
	KindEmailSendFailure   ErrorKind = "email_failed"
	KindGeneralError       ErrorKind = "general_error"
	KindOriginForbidden    ErrorKind = "origin_forbidden"
	KindPayloadTooLarge    ErrorKind = "payload_too_large"
	KindBadPayload         ErrorKind = "bad_payload"
)

// SubmissionError carries the kind, the offending field (if any), an
// optional user-facing message override and the underlying cause.
type SubmissionError struct {
	Kind       ErrorKind
	Field      string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func reject(kind ErrorKind) *SubmissionError {
	return &SubmissionError{Kind: kind}
}

func missingField(field string) *SubmissionError {
	return &SubmissionError{
		Kind:    KindMissingField,
		Field:   field,
		Message: fmt.Sprintf("Required field '%s' is missing or empty.", field),
	}
}

func wrapFailure(kind ErrorKind, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Err: err}
}

// KindOf extracts the kind of err; errors that are not SubmissionErrors
// count as general errors.
func KindOf(err error) ErrorKind {
	return asSubmissionError(err).Kind
}

// asSubmissionError unwraps err to its SubmissionError, wrapping anything
// else as a general error.
func asSubmissionError(err error) *SubmissionError {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se
	}
	return wrapFailure(KindGeneralError, err)
}

// Status maps a kind to the HTTP status of its JSON response.
func (k ErrorKind) Status() int {
	switch k {
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindOriginForbidden:
		return http.StatusForbidden
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindEmailSendFailure, KindGeneralError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Rejection reports whether the kind is a plain refusal of the input, as
// opposed to a processing failure on our side.
func (k ErrorKind) Rejection() bool {
	return k.Status() < http.StatusInternalServerError
}
