package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	MessagesSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "api_messages_saved_total", Help: "Message templates saved"},
	)
	CampaignsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "api_campaigns_published_total", Help: "Campaign jobs published to queue"},
	)

	WorkerJobsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_jobs_consumed_total", Help: "Campaign jobs consumed"},
	)
	WorkerRecipientsSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_recipients_sent_total", Help: "Recipients sent successfully"},
	)
	WorkerRecipientsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_recipients_failed_total", Help: "Recipients that failed"},
	)
	WorkerSessionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_session_failures_total", Help: "Browser sessions that could not be acquired or were lost"},
	)
	WorkerSendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_recipient_send_duration_seconds",
			Help:    "Time spent sending to one recipient",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
	WorkerJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Time spent processing one campaign job",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration, MessagesSavedTotal, CampaignsPublishedTotal,
		WorkerJobsConsumed, WorkerRecipientsSent, WorkerRecipientsFailed,
		WorkerSessionFailures, WorkerSendDuration, WorkerJobDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
