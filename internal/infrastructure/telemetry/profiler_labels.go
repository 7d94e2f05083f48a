package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelMethod    = "method"
	ProfilingLabelRoute     = "route"
	ProfilingLabelResource  = "resource"
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength caps label values so a bad caller cannot blow up series.
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped: one series per invoice or payment would
// swamp the profiling backend.
var highCardinalityLabels = map[string]bool{
	"invoice_id":      true,
	"invoice_number":  true,
	"customer_id":     true,
	"payment_id":      true,
	"idempotency_key": true,
	"request_id":      true,
	"trace_id":        true,
	"span_id":         true,
}

// WithProfilingLabels runs fn with the given pprof labels attached, so CPU and
// allocation samples taken inside fn can be filtered by them. Without a running
// profiler the labels are still set but nothing reads them.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// OperationLabels labels a named background operation such as the overdue sweep.
func OperationLabels(operation string) map[string]string {
	return map[string]string{ProfilingLabelOperation: operation}
}

// sanitizeLabels returns sorted key/value pairs with empty and high-cardinality
// entries removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	clean := make(map[string]string, len(labels))
	for k, value := range labels {
		key := sanitizeLabelKey(k)
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean[key] = value
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, clean[k])
	}
	return pairs
}

// sanitizeLabelKey lowercases the key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// LabelJob wraps a background job so every run carries the operation label.
func LabelJob(operation string, job func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var err error
		WithProfilingLabels(ctx, OperationLabels(operation), func(ctx context.Context) {
			err = job(ctx)
		})
		return err
	}
}
