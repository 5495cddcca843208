package flows

import (
	"context"

	"github.com/MrEthical07/sessionauth/jwt"
)

// TokenCodec is the subset of *jwt.Manager the flows use.
type TokenCodec interface {
	Issue(p jwt.Payload) (jwt.Token, error)
	Verify(token string) (*jwt.Claims, error)
}

// Subject is the identity a token pair is minted for.
type Subject struct {
	ID    string
	Email string
	Role  string
}

func (s Subject) payload() jwt.Payload {
	return jwt.Payload{Subject: s.ID, Email: s.Email, Role: s.Role}
}

// SubjectLookup resolves the current identity for a subject id.
type SubjectLookup func(ctx context.Context, subjectID string) (Subject, error)

// Deps groups flow dependency sets. The root engine builds this once.
type Deps struct {
	Issue     IssueDeps
	Refresh   RefreshDeps
	Revoke    RevokeDeps
	Authorize AuthorizeDeps
}
