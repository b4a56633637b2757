package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couple_http_requests_total",
			Help: "Total number of HTTP requests processed by the couple service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "couple_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "couple_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couple_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "couple_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	ephemeralViewsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "couple_ephemeral_viewers_active",
			Help: "Number of mounted ephemeral message viewers.",
		},
	)
	ephemeralTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couple_ephemeral_transitions_total",
			Help: "Ephemeral gate transitions by resulting state.",
		},
		[]string{"state"},
	)
	mediaPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couple_media_purged_total",
			Help: "Expired ephemeral media objects processed by the purge job.",
		},
		[]string{"result"},
	)
	mediaUploadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "couple_media_upload_bytes",
			Help:    "Size of accepted media uploads.",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		ephemeralViewsActive,
		ephemeralTransitionsTotal,
		mediaPurgedTotal,
		mediaUploadBytes,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncEphemeralViewers() {
	ephemeralViewsActive.Inc()
}

func DecEphemeralViewers() {
	ephemeralViewsActive.Dec()
}

func IncEphemeralTransition(state string) {
	ephemeralTransitionsTotal.WithLabelValues(state).Inc()
}

// IncMediaPurged counts one purge attempt; result is "deleted" or "failed".
func IncMediaPurged(result string) {
	mediaPurgedTotal.WithLabelValues(result).Inc()
}

func ObserveMediaUpload(kind string, size int64) {
	mediaUploadBytes.WithLabelValues(kind).Observe(float64(size))
}
