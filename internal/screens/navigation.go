package screens

import (
	"fmt"
	"net/url"
	"sync"
)

// Routes.
const (
	RouteLogin                = "/login"
	RouteRegister             = "/register"
	RouteProfile              = "/profile"
	RouteGroups               = "/groups"
	RouteCreateGroup          = "/create"
	RouteJoin                 = "/join"
	RouteVerifyOTP            = "/verify-otp"
	RouteForgetPassword       = "/forget-password"
	RouteVerifyForgetPassword = "/verify-forget-password"
	RouteResetPassword        = "/reset-password"
)

// GroupRoute is the detail route of a group.
func GroupRoute(groupID int64) string {
	return fmt.Sprintf("%s/%d", RouteGroups, groupID)
}

// QRRoute is the QR route of a group.
func QRRoute(groupID int64) string {
	return fmt.Sprintf("/qr?groupId=%d", groupID)
}

// WithEmail carries an email address to the next screen.
func WithEmail(route, email string) string {
	return route + "?email=" + url.QueryEscape(email)
}

// Navigator moves between screens.
type Navigator interface {
	// Push opens route on top of the current one.
	Push(route string)
	// Replace swaps the current route for route.
	Replace(route string)
	// Back returns to the previous route, if any.
	Back()
}

// History is an in-memory Navigator. It is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	stack []string
}

// NewHistory starts a history at route.
func NewHistory(route string) *History {
	return &History{stack: []string{route}}
}

func (h *History) Push(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, route)
}

func (h *History) Replace(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		h.stack = []string{route}
		return
	}
	h.stack[len(h.stack)-1] = route
}

func (h *History) Back() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) > 1 {
		h.stack = h.stack[:len(h.stack)-1]
	}
}

// Current returns the top route, or "" for an empty history.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		return ""
	}
	return h.stack[len(h.stack)-1]
}
