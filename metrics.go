package sessionauth

import internalmetrics "github.com/MrEthical07/sessionauth/internal/metrics"

// MetricID names one engine counter or latency histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricIssueSuccess             = internalmetrics.MetricIssueSuccess
	MetricIssueFailure             = internalmetrics.MetricIssueFailure
	MetricRefreshSuccess           = internalmetrics.MetricRefreshSuccess
	MetricRefreshInvalid           = internalmetrics.MetricRefreshInvalid
	MetricRefreshRevoked           = internalmetrics.MetricRefreshRevoked
	MetricRefreshRaceLost          = internalmetrics.MetricRefreshRaceLost
	MetricRefreshSubjectNotFound   = internalmetrics.MetricRefreshSubjectNotFound
	MetricRefreshFailure           = internalmetrics.MetricRefreshFailure
	MetricRevoke                   = internalmetrics.MetricRevoke
	MetricRevokeFailure            = internalmetrics.MetricRevokeFailure
	MetricAuthorizeSuccess         = internalmetrics.MetricAuthorizeSuccess
	MetricAuthorizeUnauthenticated = internalmetrics.MetricAuthorizeUnauthenticated
	MetricAuthorizeInvalid         = internalmetrics.MetricAuthorizeInvalid
	MetricStoreUnavailable         = internalmetrics.MetricStoreUnavailable
	MetricRecordsSwept             = internalmetrics.MetricRecordsSwept
	MetricRateLimitHit             = internalmetrics.MetricRateLimitHit
	MetricAuthorizeLatency         = internalmetrics.MetricAuthorizeLatency
	MetricRefreshLatency           = internalmetrics.MetricRefreshLatency
)

// Metrics is the Engine's lock-free counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics builds a counter set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
