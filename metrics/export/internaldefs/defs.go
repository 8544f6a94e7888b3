package internaldefs

import (
	goPerm "github.com/MrEthical07/goPerm"
)

// CounterDef pairs a core metric id with its stable exported name and help
// text. Both exporters iterate these definitions so names never diverge.
type CounterDef struct {
	ID   goPerm.MetricID
	Name string
	Help string
}

// HistogramDef pairs a core histogram id with its stable exported name and
// help text.
type HistogramDef struct {
	ID   goPerm.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in definition order.
var CounterDefs = []CounterDef{
	{ID: goPerm.MetricCheckAllowed, Name: "goperm_check_allowed_total", Help: "Permission checks that allowed the caller."},
	{ID: goPerm.MetricCheckDenied, Name: "goperm_check_denied_total", Help: "Permission checks that denied the caller."},
	{ID: goPerm.MetricResolveCacheHit, Name: "goperm_resolve_cache_hit_total", Help: "Resolutions served from the cache."},
	{ID: goPerm.MetricResolveCacheMiss, Name: "goperm_resolve_cache_miss_total", Help: "Resolutions computed from directory snapshots."},
	{ID: goPerm.MetricOwnerBypass, Name: "goperm_owner_bypass_total", Help: "Resolutions short-circuited by server ownership."},
	{ID: goPerm.MetricAdministratorBypass, Name: "goperm_administrator_bypass_total", Help: "Resolutions widened by a surviving administrator bit."},
	{ID: goPerm.MetricResolveNotAMember, Name: "goperm_resolve_not_a_member_total", Help: "Resolutions rejected because the user is not a member."},
	{ID: goPerm.MetricResolveNotFound, Name: "goperm_resolve_not_found_total", Help: "Resolutions rejected for an unknown channel or server."},
	{ID: goPerm.MetricDirectoryError, Name: "goperm_directory_error_total", Help: "Directory fetches that failed with a transport error."},
	{ID: goPerm.MetricInvalidateChannel, Name: "goperm_invalidate_channel_total", Help: "Channel-scoped cache invalidations."},
	{ID: goPerm.MetricInvalidateServer, Name: "goperm_invalidate_server_total", Help: "Server-scoped cache invalidations."},
	{ID: goPerm.MetricInvalidateMember, Name: "goperm_invalidate_member_total", Help: "Member-scoped cache invalidations."},
	{ID: goPerm.MetricMutationApplied, Name: "goperm_mutation_applied_total", Help: "Guarded mutations accepted and persisted."},
	{ID: goPerm.MetricMutationRejected, Name: "goperm_mutation_rejected_total", Help: "Guarded mutations rejected by validation or the store."},
	{ID: goPerm.MetricOverwriteNormalized, Name: "goperm_overwrite_normalized_total", Help: "Overwrite writes whose allow mask lost bits to deny-wins normalization."},
}

// HistogramDefs lists every exported histogram in definition order.
var HistogramDefs = []HistogramDef{
	{ID: goPerm.MetricResolveLatency, Name: "goperm_resolve_latency_seconds", Help: "Cold resolution latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
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

// HistogramBoundSuffix carries the bucket bounds in a form safe for metric
// name suffixes.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// eight-bucket layout.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
