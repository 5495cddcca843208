package flows

import (
	"context"

	"github.com/MrEthical07/sessionauth/jwt"
)

// AuthorizeFailureKind classifies access-token checks for root-level mapping.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureMissing
	AuthorizeFailureInvalid
)

// AuthorizeResult returns either the claims or a classified failure.
type AuthorizeResult struct {
	Failure AuthorizeFailureKind
	Err     error
	Claims  *jwt.Claims
}

// AuthorizeDeps captures access-token validation dependencies.
type AuthorizeDeps struct {
	Access TokenCodec
}

// RunAuthorize verifies an access token. It is stateless: no store lookup.
func RunAuthorize(_ context.Context, accessToken string, deps AuthorizeDeps) AuthorizeResult {
	if accessToken == "" {
		return AuthorizeResult{Failure: AuthorizeFailureMissing}
	}
	claims, err := deps.Access.Verify(accessToken)
	if err != nil {
		return AuthorizeResult{Failure: AuthorizeFailureInvalid, Err: err}
	}
	return AuthorizeResult{Claims: claims}
}
