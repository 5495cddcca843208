package sessionauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrInvalidToken, http.StatusForbidden},
		{ErrInvalidRefreshToken, http.StatusForbidden},
		{fmt.Errorf("%w: expired", ErrInvalidRefreshToken), http.StatusForbidden},
		{ErrRevokedToken, http.StatusForbidden},
		{ErrSubjectNotFound, http.StatusNotFound},
		{ErrStoreUnavailable, http.StatusInternalServerError},
		{ErrInternal, http.StatusInternalServerError},
		{fmt.Errorf("%w: %w", ErrInternal, ErrDuplicateRecord), http.StatusInternalServerError},
		{errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestInvalidRefreshTokenIsInvalidToken(t *testing.T) {
	if !errors.Is(ErrInvalidRefreshToken, ErrInvalidToken) {
		t.Fatal("ErrInvalidRefreshToken must match ErrInvalidToken")
	}
	if errors.Is(ErrInvalidToken, ErrInvalidRefreshToken) {
		t.Fatal("ErrInvalidToken must not match ErrInvalidRefreshToken")
	}
}

func TestPublicMessageHidesDetail(t *testing.T) {
	err := fmt.Errorf("%w: dial tcp 10.0.0.5:6379: connection refused", ErrStoreUnavailable)
	if got := PublicMessage(err); got != "Internal server error" {
		t.Fatalf("unexpected public message %q", got)
	}
	if got := PublicMessage(fmt.Errorf("%w: token is expired", ErrInvalidRefreshToken)); got != "Invalid refresh token" {
		t.Fatalf("unexpected public message %q", got)
	}
	if PublicMessage(nil) != "" {
		t.Fatal("nil error should have empty message")
	}
}
