// Package auth identifies the callers of the REST API.
package auth

import (
	"errors"
	"net/http"
)

// ErrExpired is returned when the user tries to authenticate with an expired token.
var ErrExpired = errors.New("token expired")

// Provider parses requests to extract authorization info.
type Provider interface {
	FromRequest(r *http.Request) (Info, error)
}

// Info stores information about the current caller. The zero Info is an
// anonymous caller.
type Info struct {
	ID string
	// IsAdmin callers may start harvests and search stored events.
	IsAdmin bool
}

// LoggedIn reports whether the caller presented a valid token.
func (i Info) LoggedIn() bool {
	return i.ID != ""
}
