package internaldefs

import (
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(goSession.HistogramBoundsSeconds) + 1

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "gosession_audit_dropped_total"

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

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricProfileFetched, Name: "gosession_profile_fetched_total", Help: "Profiles fetched and stored."},
	{ID: goSession.MetricProfileFailure, Name: "gosession_profile_failure_total", Help: "Failed profile fetches."},
	{ID: goSession.MetricMenuLoaded, Name: "gosession_menu_loaded_total", Help: "Menus fetched and marked loaded."},
	{ID: goSession.MetricMenuFailure, Name: "gosession_menu_failure_total", Help: "Failed menu fetches."},
	{ID: goSession.MetricMenuConfirmTimeout, Name: "gosession_menu_confirm_timeout_total", Help: "Menus marked loaded after the route wait gave up."},
	{ID: goSession.MetricMenuSet, Name: "gosession_menu_set_total", Help: "Menus replaced locally."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Local logouts."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Expiry reactions run."},
	{ID: goSession.MetricExpirySuppressed, Name: "gosession_expiry_suppressed_total", Help: "401 responses ignored while a reaction was in effect."},
	{ID: goSession.MetricRequestSuccess, Name: "gosession_request_success_total", Help: "Calls resolved with a payload."},
	{ID: goSession.MetricRequestTransportError, Name: "gosession_request_transport_error_total", Help: "Calls that failed before a response arrived."},
	{ID: goSession.MetricRequestAuthError, Name: "gosession_request_auth_error_total", Help: "Calls rejected as unauthenticated."},
	{ID: goSession.MetricRequestBusinessError, Name: "gosession_request_business_error_total", Help: "Calls rejected by the backend envelope."},
	{ID: goSession.MetricRequestServerError, Name: "gosession_request_server_error_total", Help: "Calls answered with a non-401 error status."},
	{ID: goSession.MetricNoticeShown, Name: "gosession_notice_shown_total", Help: "User notices raised."},
	{ID: goSession.MetricPasswordChangeSuccess, Name: "gosession_password_change_success_total", Help: "Successful password changes."},
	{ID: goSession.MetricPasswordChangeFailure, Name: "gosession_password_change_failure_total", Help: "Failed password changes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRequestLatency, Name: "gosession_request_latency_seconds", Help: "Outbound call latency."},
}

// HistogramBounds are the upper bounds in seconds, without +Inf.
func HistogramBounds() []float64 {
	out := make([]float64, len(goSession.HistogramBoundsSeconds))
	copy(out, goSession.HistogramBoundsSeconds[:])
	return out
}

// HistogramBoundSuffix returns instrument-safe suffixes for each bucket,
// e.g. "0_025" and finally "inf".
func HistogramBoundSuffix() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range goSession.HistogramBoundsSeconds {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
