package internaldefs

import (
	"github.com/MrEthical07/sessionauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricIssueSuccess, Name: "sessionauth_issue_success_total", Help: "Token pairs issued."},
	{ID: sessionauth.MetricIssueFailure, Name: "sessionauth_issue_failure_total", Help: "Issue calls that failed."},
	{ID: sessionauth.MetricRefreshSuccess, Name: "sessionauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sessionauth.MetricRefreshInvalid, Name: "sessionauth_refresh_invalid_total", Help: "Refresh attempts with a missing or unverifiable token."},
	{ID: sessionauth.MetricRefreshRevoked, Name: "sessionauth_refresh_revoked_total", Help: "Refresh attempts with a token that has no live record."},
	{ID: sessionauth.MetricRefreshRaceLost, Name: "sessionauth_refresh_race_lost_total", Help: "Refresh attempts that lost a concurrent rotation."},
	{ID: sessionauth.MetricRefreshSubjectNotFound, Name: "sessionauth_refresh_subject_not_found_total", Help: "Refresh attempts for a subject that no longer exists."},
	{ID: sessionauth.MetricRefreshFailure, Name: "sessionauth_refresh_failure_total", Help: "Refresh attempts that failed on the store or internally."},
	{ID: sessionauth.MetricRevoke, Name: "sessionauth_revoke_total", Help: "Revoke calls."},
	{ID: sessionauth.MetricRevokeFailure, Name: "sessionauth_revoke_failure_total", Help: "Revoke calls whose store delete failed."},
	{ID: sessionauth.MetricAuthorizeSuccess, Name: "sessionauth_authorize_success_total", Help: "Access tokens accepted."},
	{ID: sessionauth.MetricAuthorizeUnauthenticated, Name: "sessionauth_authorize_unauthenticated_total", Help: "Requests without an access token."},
	{ID: sessionauth.MetricAuthorizeInvalid, Name: "sessionauth_authorize_invalid_total", Help: "Access tokens rejected."},
	{ID: sessionauth.MetricStoreUnavailable, Name: "sessionauth_store_unavailable_total", Help: "Refresh store operations that failed."},
	{ID: sessionauth.MetricRecordsSwept, Name: "sessionauth_records_swept_total", Help: "Expired refresh records removed by housekeeping."},
	{ID: sessionauth.MetricRateLimitHit, Name: "sessionauth_rate_limit_hit_total", Help: "Requests rejected by the auth throttle."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricAuthorizeLatency, Name: "sessionauth_authorize_latency_seconds", Help: "Authorize latency."},
	{ID: sessionauth.MetricRefreshLatency, Name: "sessionauth_refresh_latency_seconds", Help: "Refresh latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine's
// eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
