package twilio

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors. Callers branch with errors.Is.
var (
	// ErrParsing means a response body or inbound field map could not be
	// decoded into the expected type.
	ErrParsing = errors.New("parsing error")

	// ErrAuth means the X-Twilio-Signature header was missing or did not match.
	ErrAuth = errors.New("missing or invalid `X-Twilio-Signature` header in request")

	// ErrBadRequest means the inbound request had an unusable shape.
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidParams is returned by resource builders before any network I/O.
	ErrInvalidParams = errors.New("invalid parameters")
)

// NetworkError reports that the outbound request could not be constructed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("build request: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TransmissionError reports that the transport failed to complete the exchange
// (DNS, TCP, TLS, cancelled context).
type TransmissionError struct {
	Err error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("transmission failed: %v", e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// HTTPError reports a non-success status from the API. Code and Message are
// filled from Twilio's JSON error body when one is present.
type HTTPError struct {
	Status   int
	Code     int
	Message  string
	MoreInfo string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid HTTP status code: %d (code %d: %s)", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("invalid HTTP status code: %d", e.Status)
}

// apiErrorBody is the error document Twilio returns alongside 4xx/5xx statuses.
type apiErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status}
	var doc apiErrorBody
	if len(body) > 0 && json.Unmarshal(body, &doc) == nil {
		e.Code = doc.Code
		e.Message = doc.Message
		e.MoreInfo = doc.MoreInfo
	}
	return e
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an *HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
