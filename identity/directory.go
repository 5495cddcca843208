// Package identity is a small in-memory user directory: register, password
// login and subject lookup. It is the IdentityProvider used by the demo
// server; production deployments plug in their own.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/password"
)

// DefaultRole is assigned to self-registered users.
const DefaultRole = "user"

const dummyPassword = "sessionauth-unknown-user-placeholder-credential"

var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type user struct {
	identity sessionauth.Identity
	hash     string
}

// Directory stores users keyed by id and by normalized email.
type Directory struct {
	hasher *password.Hasher

	// dummyHash is verified against for unknown emails so both login
	// failures cost one argon2 derivation.
	dummyOnce sync.Once
	dummyHash string

	mu      sync.RWMutex
	byID    map[string]*user
	byEmail map[string]string
}

func NewDirectory(hasher *password.Hasher) *Directory {
	return &Directory{
		hasher:  hasher,
		byID:    make(map[string]*user),
		byEmail: make(map[string]string),
	}
}

func (d *Directory) unknownUserHash() string {
	d.dummyOnce.Do(func() {
		hash, err := d.hasher.Hash(dummyPassword)
		if err == nil {
			d.dummyHash = hash
		}
	})
	return d.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with DefaultRole. It fails with ErrEmailTaken when
// the email is already registered, or a password.ErrTooShort wrap.
func (d *Directory) Register(ctx context.Context, email, pass string) (sessionauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return sessionauth.Identity{}, err
	}
	email = normalizeEmail(email)

	d.mu.RLock()
	_, taken := d.byEmail[email]
	d.mu.RUnlock()
	if taken {
		return sessionauth.Identity{}, ErrEmailTaken
	}

	// Hash outside the lock; argon2 is slow on purpose.
	hash, err := d.hasher.Hash(pass)
	if err != nil {
		return sessionauth.Identity{}, err
	}

	u := &user{
		identity: sessionauth.Identity{
			SubjectID: uuid.NewString(),
			Email:     email,
			Role:      DefaultRole,
		},
		hash: hash,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byEmail[email]; taken {
		return sessionauth.Identity{}, ErrEmailTaken
	}
	d.byID[u.identity.SubjectID] = u
	d.byEmail[email] = u.identity.SubjectID
	return u.identity, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email, pass string) (sessionauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return sessionauth.Identity{}, err
	}

	d.mu.RLock()
	u := d.byID[d.byEmail[normalizeEmail(email)]]
	d.mu.RUnlock()
	if u == nil {
		_ = d.hasher.Verify(pass, d.unknownUserHash())
		return sessionauth.Identity{}, ErrInvalidCredentials
	}

	if err := d.hasher.Verify(pass, u.hash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return sessionauth.Identity{}, ErrInvalidCredentials
		}
		return sessionauth.Identity{}, err
	}
	return u.identity, nil
}

// GetIdentity implements sessionauth.IdentityProvider.
func (d *Directory) GetIdentity(ctx context.Context, subjectID string) (sessionauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return sessionauth.Identity{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[subjectID]
	if !ok {
		return sessionauth.Identity{}, sessionauth.ErrSubjectNotFound
	}
	return u.identity, nil
}

// SetRole changes a user's role. The change reaches clients on their next
// refresh.
func (d *Directory) SetRole(subjectID, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[subjectID]
	if !ok {
		return sessionauth.ErrSubjectNotFound
	}
	u.identity.Role = role
	return nil
}

// Delete removes a user. Outstanding refresh tokens then fail with
// sessionauth.ErrSubjectNotFound.
func (d *Directory) Delete(subjectID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[subjectID]
	if !ok {
		return
	}
	delete(d.byEmail, u.identity.Email)
	delete(d.byID, subjectID)
}
