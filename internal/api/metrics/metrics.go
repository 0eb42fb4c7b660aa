// Package metrics defines and registers all custom Prometheus metrics for the
// shopchat client. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shopassist/shopchat/internal/core/domain"
)

const namespace = "shopchat"

// ── Credential session metrics ───────────────────────────────────────────────

// AuthOperationsTotal counts credential session operations.
// Labels:
//   - operation: "hydrate", "login", "register", "update_profile", "logout"
//   - result: "success", "failure", or for hydrate the resulting state
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of credential session operations, by outcome.",
	},
	[]string{"operation", "result"},
)

// ── Conversation metrics ─────────────────────────────────────────────────────

// MessagesSentTotal counts send attempts that reached the network.
// Label:
//   - result: "success", "failure" or "discarded" (stale response)
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of messages sent to the assistant, by outcome.",
	},
	[]string{"result"},
)

// CatalogRefreshTotal counts session catalog refreshes.
// Labels:
//   - trigger: "foreground" or "background"
//   - result: "success" or "failure"
var CatalogRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_refresh_total",
		Help:      "Total number of session catalog refreshes.",
	},
	[]string{"trigger", "result"},
)

// ── Transport metrics ────────────────────────────────────────────────────────

// RemoteErrorsTotal counts failed backend calls.
// Labels:
//   - operation: transport operation name (e.g. "login", "send_message")
//   - kind: "network_failure", "rejected", "not_found", "invalid_credential"
var RemoteErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_errors_total",
		Help:      "Total number of failed backend calls, by error kind.",
	},
	[]string{"operation", "kind"},
)

// RemoteCallDuration measures backend round-trip time.
var RemoteCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_call_duration_seconds",
		Help:      "Duration of backend calls from request to decoded response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Background task metrics ──────────────────────────────────────────────────

// BackgroundTasksTotal counts detached tasks by name and result
// ("success", "failure", "dropped", "panic").
var BackgroundTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "background_tasks_total",
		Help:      "Total number of detached background tasks, by outcome.",
	},
	[]string{"name", "result"},
)

// BackgroundQueueDepth tracks tasks waiting for a worker.
var BackgroundQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "background_queue_depth",
		Help:      "Current number of detached tasks waiting for a worker.",
	},
)

// KindLabel maps an error to its taxonomy label.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, domain.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRejected):
		return "rejected"
	default:
		return "other"
	}
}

// Result maps an error to "success" or "failure".
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
