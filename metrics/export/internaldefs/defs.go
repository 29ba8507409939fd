package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events shed by the audit dispatcher.
const AuditDroppedName = "gosession_audit_dropped_total"

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionMinted, Name: "gosession_session_minted_total", Help: "Sessions minted for requests without a usable token."},
	{ID: goSession.MetricSessionResolved, Name: "gosession_session_resolved_total", Help: "Sessions resolved from the store."},
	{ID: goSession.MetricSessionLookupMiss, Name: "gosession_session_lookup_miss_total", Help: "Bearer tokens with no live record."},
	{ID: goSession.MetricSessionLookupError, Name: "gosession_session_lookup_error_total", Help: "Store lookups that failed or returned corrupt records."},
	{ID: goSession.MetricSessionRenewed, Name: "gosession_session_renewed_total", Help: "Sliding expiry renewals."},
	{ID: goSession.MetricSessionPersisted, Name: "gosession_session_persisted_total", Help: "Session records written at finalize."},
	{ID: goSession.MetricSessionPersistSkipped, Name: "gosession_session_persist_skipped_total", Help: "Finalizations that found no change."},
	{ID: goSession.MetricSessionPersistFailed, Name: "gosession_session_persist_failed_total", Help: "Session writes that failed at finalize."},
	{ID: goSession.MetricSessionTouched, Name: "gosession_session_touched_total", Help: "TTL refreshes of unmodified sessions."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_session_destroyed_total", Help: "Sessions destroyed."},
	{ID: goSession.MetricGateRejected, Name: "gosession_gate_rejected_total", Help: "Requests rejected by the authentication gate."},
	{ID: goSession.MetricDirectBearer, Name: "gosession_direct_bearer_total", Help: "Requests authenticated on the direct-bearer path."},
	{ID: goSession.MetricRenewSignaled, Name: "gosession_renew_signaled_total", Help: "Responses carrying the renew-user signal."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins refused by the failure throttle."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts."},
	{ID: goSession.MetricUserRenewed, Name: "gosession_user_renewed_total", Help: "Session user projections reloaded from the directory."},
	{ID: goSession.MetricSignUpSuccess, Name: "gosession_signup_success_total", Help: "Accounts created."},
	{ID: goSession.MetricSignUpDuplicate, Name: "gosession_signup_duplicate_total", Help: "Sign-ups rejected as duplicate."},
	{ID: goSession.MetricSessionsRevoked, Name: "gosession_sessions_revoked_total", Help: "Revoke-all operations."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricResolveLatency, Name: "gosession_session_resolve_latency_seconds", Help: "Time spent resolving or minting a session."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds mirrors HistogramBounds without the +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix renders each bound as a metric name suffix.
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

// NormalizeBuckets copies raw into a fixed eight-slot array, zero filling
// missing slots and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
