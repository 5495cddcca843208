package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrDuplicateRecord is returned by Put when the (subject, token) pair is already stored.
	ErrDuplicateRecord = errors.New("refresh record already exists")
	// ErrNotFound is returned when no live record matches, including the
	// losing side of a Replace race.
	ErrNotFound = errors.New("refresh record not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("refresh store unavailable")
)

// DefaultRetention matches the seven-day backstop applied to refresh records.
const DefaultRetention = 7 * 24 * time.Hour

// Record is the durable mirror of one issued refresh token.
type Record struct {
	ID        string
	SubjectID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists refresh records. Implementations must enforce their
// retention window themselves: a record older than the window is never
// returned by Find nor accepted by Replace.
type Store interface {
	Put(ctx context.Context, subjectID, token string) (Record, error)
	Find(ctx context.Context, subjectID, token string) (Record, error)
	Replace(ctx context.Context, recordID, currentToken, nextToken string) error
	Delete(ctx context.Context, token string) error
}

// Sweeper is implemented by stores that reclaim expired records in bulk
// rather than relying on native key expiry.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// HashToken returns the hex SHA-256 of a token value. Stores index records by
// this hash and never keep the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRecordID returns a lexicographically sortable record identifier.
func NewRecordID(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}

func normalizeRetention(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultRetention
	}
	return d
}
