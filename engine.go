package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/refresh"
)

// Engine issues, rotates, revokes and checks token pairs. Build one with
// [Builder.Build]; all methods are safe for concurrent use.
type Engine struct {
	config     Config
	flows      flows.Service
	access     *jwt.Manager
	refresh    *jwt.Manager
	store      refresh.Store
	identities IdentityProvider
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Close flushes pending audit events. It does not close the refresh store;
// the caller owns it.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Shutdown is Close bounded by ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.audit.Shutdown(ctx)
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and latency buckets. A nil
// Engine returns empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue mints a fresh access/refresh pair for identity and records the
// refresh token as a new chain. Prior chains of the same subject are left
// alone, so each device keeps its own session.
func (e *Engine) Issue(ctx context.Context, identity Identity) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if identity.SubjectID == "" {
		return TokenPair{}, fmt.Errorf("%w: empty subject id", ErrInternal)
	}

	res := e.flows.Issue(ctx, flows.Subject{
		ID:    identity.SubjectID,
		Email: identity.Email,
		Role:  identity.Role,
	})

	var err error
	switch res.Failure {
	case flows.IssueFailureNone:
	case flows.IssueFailureDuplicate:
		err = fmt.Errorf("%w: %w", ErrInternal, ErrDuplicateRecord)
	case flows.IssueFailureStore:
		err = e.storeUnavailable(ctx, "issue", res.Err)
	default:
		err = fmt.Errorf("%w: %v", ErrInternal, res.Err)
	}
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.logger.ErrorContext(ctx, "issue failed",
			slog.String("subject_id", identity.SubjectID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, auditEventIssueFailure, false, identity.SubjectID, "", err, nil)
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, identity.SubjectID, res.RecordID, nil, nil)
	return pairFrom(res.Access, res.Refresh), nil
}

// Refresh exchanges a live refresh token for a new pair and retires the
// presented token. Of concurrent calls presenting the same token, exactly one
// succeeds; the rest get ErrRevokedToken.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricRefreshLatency, start)

	if refreshToken == "" {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrUnauthenticated, nil)
		return TokenPair{}, ErrUnauthenticated
	}

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.SubjectID, res.RecordID, nil, nil)
		return pairFrom(res.Access, res.Refresh), nil

	case flows.RefreshFailureVerify:
		err := fmt.Errorf("%w: %v", ErrInvalidRefreshToken, res.Err)
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return TokenPair{}, err

	case flows.RefreshFailureRecordMissing:
		e.metricInc(MetricRefreshRevoked)
		e.emitAudit(ctx, auditEventRefreshRevoked, false, res.SubjectID, "", ErrRevokedToken, nil)
		return TokenPair{}, ErrRevokedToken

	case flows.RefreshFailureSuperseded:
		e.metricInc(MetricRefreshRaceLost)
		e.logger.WarnContext(ctx, "refresh lost rotation race",
			slog.String("subject_id", res.SubjectID),
			slog.String("record_id", res.RecordID),
		)
		e.emitAudit(ctx, auditEventRefreshRaceLost, false, res.SubjectID, res.RecordID, ErrRevokedToken, nil)
		return TokenPair{}, ErrRevokedToken

	case flows.RefreshFailureSubjectNotFound:
		e.metricInc(MetricRefreshSubjectNotFound)
		e.emitAudit(ctx, auditEventRefreshSubjectNotFound, false, res.SubjectID, res.RecordID, ErrSubjectNotFound, nil)
		return TokenPair{}, ErrSubjectNotFound

	case flows.RefreshFailureFind, flows.RefreshFailureReplace:
		err := e.storeUnavailable(ctx, "refresh", res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, res.SubjectID, res.RecordID, err, nil)
		return TokenPair{}, err

	case flows.RefreshFailureDuplicate:
		err := fmt.Errorf("%w: %w", ErrInternal, ErrDuplicateRecord)
		e.metricInc(MetricRefreshFailure)
		e.logger.ErrorContext(ctx, "refresh value collision",
			slog.String("record_id", res.RecordID),
		)
		e.emitAudit(ctx, auditEventRefreshFailure, false, res.SubjectID, res.RecordID, err, nil)
		return TokenPair{}, err

	default:
		err := fmt.Errorf("%w: %v", ErrInternal, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.logger.ErrorContext(ctx, "refresh failed",
			slog.String("subject_id", res.SubjectID),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, auditEventRefreshFailure, false, res.SubjectID, res.RecordID, err, nil)
		return TokenPair{}, err
	}
}

// Revoke deletes the record holding refreshToken. It never fails from the
// caller's point of view: an empty, unknown, expired or already revoked
// token is a no-op, and store errors are logged and counted only.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) {
	if !e.ready() || refreshToken == "" {
		return
	}

	res := e.flows.Revoke(ctx, refreshToken)
	if res.Err != nil {
		e.metricInc(MetricRevokeFailure)
		if errors.Is(res.Err, refresh.ErrUnavailable) {
			e.metricInc(MetricStoreUnavailable)
		}
		e.logger.WarnContext(ctx, "revoke failed",
			slog.String("subject_id", res.SubjectID),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, auditEventRevoke, false, res.SubjectID, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err), nil)
		return
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventRevoke, true, res.SubjectID, "", nil, nil)
}

// Authorize verifies an access token and returns the identity it carries.
// It never touches the refresh store.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (Identity, error) {
	if !e.ready() {
		return Identity{}, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricAuthorizeLatency, start)

	res := e.flows.Authorize(ctx, accessToken)
	switch res.Failure {
	case flows.AuthorizeFailureNone:
		e.metricInc(MetricAuthorizeSuccess)
		return Identity{
			SubjectID: res.Claims.Subject,
			Email:     res.Claims.Email,
			Role:      res.Claims.Role,
		}, nil
	case flows.AuthorizeFailureMissing:
		e.metricInc(MetricAuthorizeUnauthenticated)
		return Identity{}, ErrUnauthenticated
	default:
		e.metricInc(MetricAuthorizeInvalid)
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, res.Err)
	}
}

// Sweep removes expired records when the store needs it. Stores with native
// expiry report zero.
func (e *Engine) Sweep(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	sweeper, ok := e.store.(refresh.Sweeper)
	if !ok {
		return 0, nil
	}

	n, err := sweeper.DeleteExpired(ctx)
	if err != nil {
		return n, e.storeUnavailable(ctx, "sweep", err)
	}
	if n > 0 {
		e.metrics.Add(MetricRecordsSwept, uint64(n))
		e.emitAudit(ctx, auditEventExpiredRecordsCollected, true, "", "", nil, func() map[string]string {
			return map[string]string{"count": fmt.Sprint(n)}
		})
	}
	return n, nil
}

// SweepEnabled reports whether Sweep has any work to do for the configured
// store.
func (e *Engine) SweepEnabled() bool {
	if !e.ready() {
		return false
	}
	_, ok := e.store.(refresh.Sweeper)
	return ok
}

func (e *Engine) storeUnavailable(ctx context.Context, op string, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.WarnContext(ctx, "refresh store unavailable",
		slog.String("op", op),
		slog.Any("error", cause),
	)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}

func (e *Engine) lookupSubject(ctx context.Context, subjectID string) (flows.Subject, error) {
	identity, err := e.identities.GetIdentity(ctx, subjectID)
	if err != nil {
		return flows.Subject{}, err
	}
	return flows.Subject{
		ID:    identity.SubjectID,
		Email: identity.Email,
		Role:  identity.Role,
	}, nil
}

func pairFrom(access, refreshToken jwt.Token) TokenPair {
	return TokenPair{
		AccessToken:      access.Value,
		RefreshToken:     refreshToken.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refreshToken.ExpiresAt,
	}
}
