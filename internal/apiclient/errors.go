package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindNetwork means no response was received: dial failure, timeout or cancellation.
	KindNetwork Kind = iota + 1
	// KindUnauthorized is a 401 or 403. The session should be discarded.
	KindUnauthorized
	// KindValidation is a 422 carrying per-field messages, or a local validation failure.
	KindValidation
	// KindServer is any other non-2xx status.
	KindServer
	// KindDecode is a 2xx whose body does not have the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind Kind

	// Endpoint names the façade call, e.g. "groups.create".
	Endpoint string

	// Status is the HTTP status, or 0 when no response was received or the
	// failure was detected locally.
	Status int

	// Message is the backend's message field, when there was one.
	Message string

	// Fields holds validation messages keyed by request field.
	Fields map[string][]string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s error", e.Endpoint, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldNames returns the fields with validation messages, sorted.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return IsKind(err, KindUnauthorized)
}

// ValidationError builds a local validation failure for a single field.
func ValidationError(endpoint, field, message string) *Error {
	return &Error{
		Kind:     KindValidation,
		Endpoint: endpoint,
		Message:  message,
		Fields:   map[string][]string{field: {message}},
	}
}

// errorBody is the backend's error shape. errors may be an object of
// field -> messages, field -> message, or a bare list of messages.
type errorBody struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// responseError classifies a non-2xx response.
func responseError(endpoint string, status int, body []byte) *Error {
	e := &Error{Endpoint: endpoint, Status: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		e.Message = parsed.Message
		e.Fields = parseFieldErrors(parsed.Errors)
	}
	return e
}

func parseFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var many map[string][]string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}

	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		fields := make(map[string][]string, len(single))
		for k, v := range single {
			fields[k] = []string{v}
		}
		return fields
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return map[string][]string{"": list}
	}
	return nil
}
