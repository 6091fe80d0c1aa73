package models

// Session is the client's persisted authentication state.
// A session with an empty Token is treated as absent.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AuthResult is the login/registration response body.
type AuthResult struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}
