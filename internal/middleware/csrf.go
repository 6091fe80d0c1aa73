package middleware

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/mmynk/cookie/internal/auth"
)

const (
	// CSRFCookieName is the cookie set by the CSRF endpoint.
	CSRFCookieName = "XSRF-TOKEN"
	// CSRFHeaderName carries the cookie value back on state-changing requests.
	CSRFHeaderName = "X-XSRF-TOKEN"
)

// CSRFCookieHandler issues a fresh XSRF-TOKEN cookie and responds 204.
func CSRFCookieHandler(ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := hex.EncodeToString(securecookie.GenerateRandomKey(32))
		http.SetCookie(w, &http.Cookie{
			Name:     CSRFCookieName,
			Value:    url.QueryEscape(token),
			Path:     "/",
			Expires:  time.Now().Add(ttl),
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// CSRF enforces double-submit protection on state-changing requests.
// Requests carrying a bearer token that jwtManager accepts are exempt; an
// invalid token gets no exemption.
func CSRF(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresCSRFCheck(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if token, ok := BearerToken(r); ok {
				if _, err := jwtManager.Validate(token); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			headerToken := r.Header.Get(CSRFHeaderName)
			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || headerToken == "" {
				writeError(w, 419, "CSRF token mismatch.")
				return
			}
			cookieToken, err := url.QueryUnescape(cookie.Value)
			if err != nil || cookieToken == "" || cookieToken != headerToken {
				writeError(w, 419, "CSRF token mismatch.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requiresCSRFCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
