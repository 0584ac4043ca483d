package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/desertthunder/sonicvision/internal/shared"
)

// AuthExpiredError is returned when credentials could not be recovered. Both tokens have been cleared.
//
// Cause is the classified failure that ended the session, so errors.As still finds
// a [*NotFoundError] or [*ServerError] returned by the retry. RefreshErr is set when
// the refresh itself failed.
type AuthExpiredError struct {
	StatusCode int
	Cause      error
	RefreshErr error
}

func (e *AuthExpiredError) Error() string {
	msg := shared.ErrAuthExpired.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.RefreshErr != nil {
		msg += " (" + e.RefreshErr.Error() + ")"
	}
	return msg
}

func (e *AuthExpiredError) Unwrap() []error {
	errs := []error{shared.ErrAuthExpired}
	for _, err := range []error{e.Cause, e.RefreshErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidationError carries structured field errors from a 4xx response or from local request validation.
//
// StatusCode is 0 when the request was rejected before being sent.
type ValidationError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string][]string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(shared.ErrValidation.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(&b, "; %s: %s", f, strings.Join(e.Fields[f], ", "))
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// NotFoundError is a 404 response.
type NotFoundError struct {
	Method  string
	URL     string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Method, e.URL, shared.ErrNotFound, e.Message)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, shared.ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return shared.ErrNotFound }

// NetworkError means no response was received. Err is the transport failure.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.URL, shared.ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{shared.ErrNetwork, e.Err} }

// ServerError is a 5xx response.
type ServerError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v (%d): %s", e.Method, e.URL, shared.ErrServer, e.StatusCode, msg)
}

func (e *ServerError) Unwrap() error { return shared.ErrServer }

// HTTPError is any other non-2xx response, including an unresolved 401/403 before it becomes terminal.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
	Code       string
	Body       []byte
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v (%d): %s", e.Method, e.URL, shared.ErrAPIRequest, e.StatusCode, msg)
}

func (e *HTTPError) Unwrap() error { return shared.ErrAPIRequest }

// ClassifyResponse maps a non-2xx status and its body to one of the typed errors. It returns nil for 2xx.
//
// Bodies may use either envelope: {"message","code","errors":{field:[msgs]}} or the DRF shapes
// {"detail": "..."} and {field: [msgs]}.
func ClassifyResponse(method, url string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	message, code, fields := parseErrorBody(body)

	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{Method: method, URL: url, Message: message}
	case status >= 500:
		return &ServerError{StatusCode: status, Method: method, URL: url, Message: message}
	case isAuthFailure(status):
		return &HTTPError{StatusCode: status, Method: method, URL: url, Message: message, Code: code, Body: body}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || len(fields) > 0:
		return &ValidationError{StatusCode: status, Message: message, Code: code, Fields: fields}
	default:
		return &HTTPError{StatusCode: status, Method: method, URL: url, Message: message, Code: code, Body: body}
	}
}

// parseErrorBody extracts a message, a code and field errors from either error envelope.
func parseErrorBody(body []byte) (message, code string, fields map[string][]string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return "", "", nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", "", nil
	}

	fields = map[string][]string{}
	for key, value := range raw {
		switch key {
		case "message", "detail", "error":
			if message == "" {
				message = stringOf(value)
			}
		case "code":
			code = stringOf(value)
		case "errors":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(value, &nested); err == nil {
				for f, v := range nested {
					if msgs := messagesOf(v); len(msgs) > 0 {
						fields[f] = msgs
					}
				}
			}
		default:
			if msgs := messagesOf(value); len(msgs) > 0 {
				fields[key] = msgs
			}
		}
	}

	if len(fields) == 0 {
		fields = nil
	}
	return message, code, fields
}

func stringOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// messagesOf accepts a string or a list of strings.
func messagesOf(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := stringOf(raw); s != "" {
		return []string{s}
	}
	return nil
}
