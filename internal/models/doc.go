// Package models defines the wire and storage models shared by the Cookie
// client and the reference backend.
//
// # Models
//
//   - User: a registered account. The client caches one in the session.
//   - Group: a social group, joinable by share code or QR when shared.
//   - Member: a group member as listed by the members endpoint.
//   - Post: a message inside a group.
//   - Story: a time-limited message, optionally visible to a subset of members.
//   - Session: the bearer token and cached user persisted by the client.
//   - OTP: a one-time code backing account verification and password reset.
//
// # Wire format
//
// IDs are JSON numbers. Timestamps are RFC 3339 strings. The backend stores
// timestamps as Unix seconds and converts at the edge.
package models
