package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for every rejected token: malformed,
// tampered, signed with another key, expired, or minted for another use.
var ErrInvalidToken = errors.New("invalid token")

// SigningMethod selects the JWS algorithm a Manager signs with.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256; PrivateKey is the shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with EdDSA; PrivateKey/PublicKey hold the key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Use tags a token with the purpose it was minted for. A Manager only
// verifies tokens carrying its own Use.
type Use string

const (
	UseAccess  Use = "access"
	UseRefresh Use = "refresh"
)

const minHMACKeyBytes = 32

// Config is the immutable configuration of a single Manager.
type Config struct {
	Use           Use
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration

	// Now overrides the clock used for issuing and validating; nil means time.Now.
	Now func() time.Time
}

// Payload is the caller-supplied part of the claims.
type Payload struct {
	Subject string
	Email   string
	Role    string
}

// Claims is the decoded claim set of a verified token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Use   Use    `json:"use"`
	jwt.RegisteredClaims
}

// Token is a freshly signed token together with its embedded timestamps.
type Token struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager signs and verifies tokens for exactly one Use with one key.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	sign   interface{}
	verify interface{}
}

// NewManager validates cfg and resolves its keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Use != UseAccess && cfg.Use != UseRefresh {
		return nil, errors.New("invalid token use")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.PrivateKey) < minHMACKeyBytes {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHMACKeyBytes)
		}
		m.config.SigningMethod = MethodHS256
		m.method = jwt.SigningMethodHS256
		m.sign = cfg.PrivateKey
		m.verify = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.method = jwt.SigningMethodEdDSA
		m.verify = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.sign = priv
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// Use reports the purpose this Manager signs for.
func (m *Manager) Use() Use { return m.config.Use }

// TTL reports the lifetime stamped on issued tokens.
func (m *Manager) TTL() time.Duration { return m.config.TTL }

// Issue signs p with iat=now and exp=now+TTL. Every token gets a random jti,
// so two tokens issued for the same subject in the same second still differ.
func (m *Manager) Issue(p Payload) (Token, error) {
	if m.sign == nil {
		return Token{}, errors.New("manager has no signing key")
	}
	if p.Subject == "" {
		return Token{}, errors.New("subject is required")
	}

	now := m.config.Now().Truncate(time.Second)
	exp := now.Add(m.config.TTL)
	id := uuid.NewString()

	claims := Claims{
		Use: m.config.Use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Use == UseAccess {
		claims.Email = p.Email
		claims.Role = p.Role
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.sign)
	if err != nil {
		return Token{}, err
	}

	return Token{Value: signed, ID: id, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm, expiry, issuer, audience and use.
// It never panics and reports every rejection as ErrInvalidToken, wrapping
// the parser's reason for logging.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verify, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Use != m.config.Use {
		return nil, fmt.Errorf("%w: token minted for %q", ErrInvalidToken, claims.Use)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
