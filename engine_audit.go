package sessionauth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
)

const (
	auditEventIssueSuccess            = "issue_success"
	auditEventIssueFailure            = "issue_failure"
	auditEventRefreshSuccess          = "refresh_success"
	auditEventRefreshInvalid          = "refresh_invalid"
	auditEventRefreshRevoked          = "refresh_revoked"
	auditEventRefreshRaceLost         = "refresh_race_lost"
	auditEventRefreshSubjectNotFound  = "refresh_subject_not_found"
	auditEventRefreshFailure          = "refresh_failure"
	auditEventRevoke                  = "revoke"
	auditEventRateLimitTriggered      = "rate_limit_triggered"
	auditEventExpiredRecordsCollected = "expired_records_collected"
)

// AuditErrorCode is the stable, low-cardinality error label written into
// audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated  AuditErrorCode = "unauthenticated"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrRevokedToken     AuditErrorCode = "revoked_token"
	auditErrSubjectNotFound  AuditErrorCode = "subject_not_found"
	auditErrDuplicate        AuditErrorCode = "duplicate"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	recordID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := internalaudit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		RecordID:  recordID,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// ReportRateLimited records a throttled request. Transports call it when they
// reject a caller before the Engine is reached.
func (e *Engine) ReportRateLimited(ctx context.Context, scope string) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", nil, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrRevokedToken):
		return auditErrRevokedToken
	case errors.Is(err, ErrSubjectNotFound):
		return auditErrSubjectNotFound
	case errors.Is(err, ErrDuplicateRecord):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrInternal
	}
}
