package screens

import (
	"errors"
	"strings"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/auth"
)

// Messages shown when the backend gives none.
const (
	msgNetwork    = "Network error. Please try again."
	msgSession    = "Session expired. Please log in again."
	msgLogin      = "Please log in to continue."
	msgGeneric    = "An error occurred."
	msgBadPayload = "Unexpected response from server."
)

// Feedback is what a screen shows after an action: a headline message and
// per-field validation messages.
type Feedback struct {
	Message string
	Fields  map[string][]string
}

// Empty reports whether there is nothing to show.
func (f Feedback) Empty() bool {
	return f.Message == "" && len(f.Fields) == 0
}

// Describe maps an error onto user-facing feedback.
func Describe(err error) Feedback {
	if err == nil {
		return Feedback{}
	}
	if errors.Is(err, ErrBusy) {
		return Feedback{Message: "Please wait."}
	}
	apiErr, ok := apiclient.AsError(err)
	if !ok {
		return Feedback{Message: msgGeneric}
	}

	switch apiErr.Kind {
	case apiclient.KindNetwork:
		return Feedback{Message: msgNetwork}
	case apiclient.KindUnauthorized:
		if IsMissingToken(apiErr) {
			return Feedback{Message: msgLogin}
		}
		return Feedback{Message: msgSession}
	case apiclient.KindValidation:
		fb := Feedback{Message: apiErr.Message, Fields: apiErr.Fields}
		if fb.Message == "" {
			for _, name := range apiErr.FieldNames() {
				if msgs := apiErr.Fields[name]; len(msgs) > 0 {
					fb.Message = msgs[0]
					break
				}
			}
		}
		if fb.Message == "" {
			fb.Message = msgGeneric
		}
		return fb
	case apiclient.KindDecode:
		return Feedback{Message: msgBadPayload}
	default:
		if apiErr.Message != "" {
			return Feedback{Message: apiErr.Message}
		}
		return Feedback{Message: msgGeneric}
	}
}

// validation collects local field errors before any request is made.
type validation struct {
	fields map[string][]string
	first  string
}

func newValidation() *validation {
	return &validation{fields: map[string][]string{}}
}

func (v *validation) add(field, message string) {
	if v.first == "" {
		v.first = message
	}
	v.fields[field] = append(v.fields[field], message)
}

func (v *validation) required(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
}

func (v *validation) maxLen(field, value string, n int, message string) {
	if len([]rune(value)) > n {
		v.add(field, message)
	}
}

func (v *validation) otp(field, code string) {
	if !auth.ValidOTPFormat(strings.TrimSpace(code)) {
		v.add(field, "Enter the 6-digit code.")
	}
}

func (v *validation) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &apiclient.Error{
		Kind:     apiclient.KindValidation,
		Endpoint: "local",
		Message:  v.first,
		Fields:   v.fields,
	}
}
