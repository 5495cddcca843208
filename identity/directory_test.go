package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/password"
)

func newDirectory(t *testing.T) *Directory {
	t.Helper()
	cfg := password.DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	cfg.Parallelism = 1
	h, err := password.New(cfg)
	require.NoError(t, err)
	return NewDirectory(h)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	id, err := d.Register(ctx, " Alice@Example.com ", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, id.SubjectID)
	require.Equal(t, "alice@example.com", id.Email)
	require.Equal(t, DefaultRole, id.Role)

	got, err := d.Authenticate(ctx, "ALICE@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = d.Authenticate(ctx, "alice@example.com", "wrong-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = d.Authenticate(ctx, "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	_, err := d.Register(ctx, "bob@example.com", "password-one")
	require.NoError(t, err)
	_, err = d.Register(ctx, "BOB@example.com", "password-two")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterShortPassword(t *testing.T) {
	d := newDirectory(t)
	_, err := d.Register(context.Background(), "carol@example.com", "short")
	require.ErrorIs(t, err, password.ErrTooShort)
}

func TestGetIdentityAndDelete(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	id, err := d.Register(ctx, "dave@example.com", "dave-password")
	require.NoError(t, err)

	require.NoError(t, d.SetRole(id.SubjectID, "admin"))
	got, err := d.GetIdentity(ctx, id.SubjectID)
	require.NoError(t, err)
	require.Equal(t, "admin", got.Role)

	d.Delete(id.SubjectID)
	_, err = d.GetIdentity(ctx, id.SubjectID)
	require.True(t, errors.Is(err, sessionauth.ErrSubjectNotFound))
	require.ErrorIs(t, d.SetRole(id.SubjectID, "user"), sessionauth.ErrSubjectNotFound)

	// The email is free again.
	_, err = d.Register(ctx, "dave@example.com", "dave-password")
	require.NoError(t, err)
}

func TestDirectoryIsIdentityProvider(t *testing.T) {
	var _ sessionauth.IdentityProvider = newDirectory(t)
}

func TestAuthenticateUnknownEmailVerifiesDummyHash(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()
	require.Empty(t, d.dummyHash)

	_, err := d.Authenticate(ctx, "ghost@example.com", "whatever-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.NotEmpty(t, d.dummyHash)
	require.NoError(t, d.hasher.Verify(dummyPassword, d.dummyHash))

	// The placeholder credential never logs anyone in.
	_, err = d.Authenticate(ctx, "ghost@example.com", dummyPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
