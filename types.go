package sessionauth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
)

// Identity is the verified subject a token pair is minted for.
type Identity struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// TokenPair is what Issue and Refresh hand back for transport.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// IdentityProvider resolves the current identity of a subject during
// Refresh. Implementations return ErrSubjectNotFound (or an error wrapping
// it) when the subject no longer exists.
type IdentityProvider interface {
	GetIdentity(ctx context.Context, subjectID string) (Identity, error)
}

// IdentityProviderFunc adapts a function to IdentityProvider.
type IdentityProviderFunc func(ctx context.Context, subjectID string) (Identity, error)

func (f IdentityProviderFunc) GetIdentity(ctx context.Context, subjectID string) (Identity, error) {
	return f(ctx, subjectID)
}

// AuditEvent is one emitted lifecycle event.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel read via Events.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs each event as a structured slog record.
type SlogSink = internalaudit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
