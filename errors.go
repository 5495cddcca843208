package sessionauth

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated means no credential was presented at all.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken means a token was presented but is malformed, expired,
	// tampered with, or signed with another key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken is ErrInvalidToken for the refresh path; it
	// matches ErrInvalidToken under errors.Is.
	ErrInvalidRefreshToken = &taxonomyError{msg: "invalid refresh token", parent: ErrInvalidToken}
	// ErrRevokedToken means a refresh token verified but no live record holds
	// it: logged out, already rotated, or past retention.
	ErrRevokedToken = errors.New("refresh token revoked")
	// ErrSubjectNotFound means the token is valid but its subject no longer exists.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrDuplicateRecord is a refresh-token value collision in the store.
	ErrDuplicateRecord = errors.New("duplicate refresh record")
	// ErrStoreUnavailable means the refresh store could not be reached.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
	// ErrInternal covers everything the caller cannot act on.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by a zero or nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

type taxonomyError struct {
	msg    string
	parent error
}

func (e *taxonomyError) Error() string { return e.msg }

func (e *taxonomyError) Unwrap() error { return e.parent }

// HTTPStatus maps an Engine error onto the response status a transport should
// use. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRevokedToken):
		return http.StatusForbidden
	case errors.Is(err, ErrSubjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err. It never includes
// wrapped detail.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "Invalid refresh token"
	case errors.Is(err, ErrInvalidToken):
		return "Invalid or expired token"
	case errors.Is(err, ErrRevokedToken):
		return "Refresh token revoked"
	case errors.Is(err, ErrSubjectNotFound):
		return "User not found"
	default:
		return "Internal server error"
	}
}
