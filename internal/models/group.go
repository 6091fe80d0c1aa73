package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Group represents a social group.
// Groups are joinable by share code (or its QR encoding) only while IsShared.
type Group struct {
	// ID is the backend-assigned numeric identifier.
	ID int64 `json:"id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description"`

	// Creator is the abbreviated creator record.
	Creator *UserRef `json:"creator,omitempty"`

	// IsShared controls whether the share code and QR code accept joins.
	IsShared Flag `json:"is_shared"`

	// ShareCode identifies the group for join-by-code.
	ShareCode string `json:"share_code,omitempty"`

	// CreatedBy is the creator's user ID.
	CreatedBy int64 `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
}

// CreatorName returns the creator's display name, or "Unknown".
func (g Group) CreatorName() string {
	if g.Creator == nil || g.Creator.Name == "" {
		return "Unknown"
	}
	return g.Creator.Name
}

// Member is a group member as returned by the members endpoint.
type Member struct {
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// Label returns the member's name, falling back to the email.
func (m Member) Label() string {
	if m.UserName != "" {
		return m.UserName
	}
	return m.UserEmail
}

// JoinResult is the join-group response.
type JoinResult struct {
	Message string `json:"message"`
	Data    struct {
		GroupID int64 `json:"group_id"`
	} `json:"data"`
}

// Flag is a boolean that also accepts the 0/1 integers some backends emit.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true", "1", `"1"`:
		*f = true
	case "false", "0", `"0"`, "null":
		*f = false
	default:
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("invalid flag %s", b)
		}
		*f = Flag(v)
	}
	return nil
}
