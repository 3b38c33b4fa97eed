// Package metrics owns the Prometheus registry of the bot and the helpers
// used by the transport and domain layers to record into it.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ileafrica/ilebot/core/logger"
)

const namespace = "ilebot"

var (
	// Registry holds the bot's collectors; the default registry is left alone.
	Registry = prometheus.NewRegistry()

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Inbound Telegram updates by kind.",
		},
		[]string{"kind"},
	)

	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 11),
		},
		[]string{"handler", "status"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user limiter.",
		},
	)

	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "send_failures_total",
			Help:      "Outbound Telegram calls that failed after retries.",
		},
		[]string{"kind"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "events_total",
			Help:      "Property submission lifecycle events.",
		},
		[]string{"outcome"},
	)

	moderation = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "decisions_total",
			Help:      "Moderation decisions by resulting status.",
		},
		[]string{"status"},
	)

	uploads = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "upload_duration_seconds",
			Help:      "Image upload latency by result.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		updates,
		handlerDuration,
		rateLimited,
		sendFailures,
		submissions,
		moderation,
		uploads,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Submission outcomes.
const (
	SubmissionStarted   = "started"
	SubmissionFinalized = "finalized"
	SubmissionCancelled = "cancelled"
	SubmissionReset     = "reset"
	SubmissionBanned    = "banned"
	SubmissionCooldown  = "cooldown"
	SubmissionFailed    = "failed"
)

// RecordUpdate counts one inbound update.
func RecordUpdate(kind string) {
	if kind == "" {
		kind = "other"
	}
	updates.WithLabelValues(kind).Inc()
}

// ObserveHandler records the duration of one handled update.
func ObserveHandler(handler, status string, d time.Duration) {
	if handler == "" {
		handler = "unknown"
	}
	handlerDuration.WithLabelValues(handler, status).Observe(d.Seconds())
}

// RecordRateLimited counts one throttled update.
func RecordRateLimited() { rateLimited.Inc() }

// RecordSendFailure counts one failed outbound call.
func RecordSendFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	sendFailures.WithLabelValues(kind).Inc()
}

// RecordSubmission counts a submission lifecycle event.
func RecordSubmission(outcome string) { submissions.WithLabelValues(outcome).Inc() }

// RecordModeration counts a status change made by an admin.
func RecordModeration(status string) { moderation.WithLabelValues(status).Inc() }

// ObserveUpload records one image upload attempt.
func ObserveUpload(ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "fail"
	}
	uploads.WithLabelValues(status).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics listener on addr until ctx is cancelled. An empty
// addr disables the exporter.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info(ctx, "metrics", "listen", slog.String("listen", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
