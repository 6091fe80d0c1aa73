package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmynk/cookie/internal/models"
)

// MinShareCodeLength is the shortest share code the backend accepts.
const MinShareCodeLength = 8

// NormalizeShareCode extracts a share code from raw input. A URL payload
// (as scanned from a QR code) contributes its "code" query parameter.
func NormalizeShareCode(raw string) string {
	code := strings.TrimSpace(raw)
	if u, err := url.Parse(code); err == nil && u.Scheme != "" && u.Host != "" {
		if q := u.Query().Get("code"); q != "" {
			code = strings.TrimSpace(q)
		}
	}
	return code
}

// ValidateShareCode rejects codes the backend would refuse anyway.
func ValidateShareCode(code string) error {
	if len(strings.TrimSpace(code)) < MinShareCodeLength {
		return ValidationError("groups.join", "code", fmt.Sprintf("Share code must be at least %d characters.", MinShareCodeLength))
	}
	return nil
}

// GetGroups lists the caller's groups. The result is never nil.
func (c *Client) GetGroups(ctx context.Context) ([]models.Group, error) {
	const endpoint = "groups.list"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     "/api/groups",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return unwrapList[models.Group](endpoint, body, "")
}

// CreateGroup creates a group owned by the caller.
func (c *Client) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	const endpoint = "groups.create"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/groups",
		body:     map[string]string{"name": name, "description": description},
		csrf:     true,
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	group, err := unwrapData[models.Group](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup deletes a group and returns the backend's message.
func (c *Client) DeleteGroup(ctx context.Context, groupID int64) (string, error) {
	const endpoint = "groups.delete"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodDelete,
		path:     groupPath(groupID, ""),
		csrf:     true,
		auth:     true,
	})
	if err != nil {
		return "", err
	}
	return message(endpoint, body)
}

// JoinGroup joins the group behind a share code. Codes shorter than
// MinShareCodeLength fail locally without a request.
func (c *Client) JoinGroup(ctx context.Context, code string) (*models.JoinResult, error) {
	const endpoint = "groups.join"
	code = NormalizeShareCode(code)
	if err := ValidateShareCode(code); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/join-group",
		body:     map[string]string{"code": code},
		csrf:     true,
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	res, err := unwrapWhole[models.JoinResult](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetGroupDetails returns a single group.
func (c *Client) GetGroupDetails(ctx context.Context, groupID int64) (*models.Group, error) {
	const endpoint = "groups.get"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     groupPath(groupID, ""),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	group, err := unwrapData[models.Group](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroupMembers lists a group's members.
func (c *Client) GetGroupMembers(ctx context.Context, groupID int64) ([]models.Member, error) {
	const endpoint = "groups.members"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     groupPath(groupID, "/members"),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return unwrapList[models.Member](endpoint, body, "")
}

// ToggleGroupSharing flips the sharing flag and returns the updated group.
func (c *Client) ToggleGroupSharing(ctx context.Context, groupID int64) (*models.Group, error) {
	const endpoint = "groups.toggle_sharing"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     groupPath(groupID, "/toggle-sharing"),
		csrf:     true,
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	group, err := unwrapData[models.Group](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroupQR returns the group's join QR code as SVG markup.
func (c *Client) GetGroupQR(ctx context.Context, groupID int64) (string, error) {
	const endpoint = "groups.qr"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     groupPath(groupID, "/qr"),
		accept:   "image/svg+xml",
		auth:     true,
	})
	if err != nil {
		return "", err
	}
	svg := strings.TrimSpace(string(body))
	if !strings.Contains(svg, "<svg") {
		return "", decodeError(endpoint, errors.New("response is not SVG"))
	}
	return svg, nil
}

func groupPath(groupID int64, suffix string) string {
	return fmt.Sprintf("/api/groups/%d%s", groupID, suffix)
}
