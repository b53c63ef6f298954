package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HistogramBuckets covers fast API calls up to slow provider round-trips (ms).
var HistogramBuckets = []float64{
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	750, 1000, 1500, 2000,
	3000, 5000, 7500, 10000, 15000,
	30000, 60000,
}

type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec

	// Domain metrics.
	ConfirmationsTotal    *prometheus.CounterVec
	LedgerInconsistencies prometheus.Counter

	registry *prometheus.Registry
	log      *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Prometheus {
	p := &Prometheus{
		reqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed, partitioned by status code, method and route.",
		}, []string{"code", "method", "route"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds.",
			Buckets: HistogramBuckets,
		}, []string{"code", "method", "route"}),
		ConfirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Payment confirmations applied, partitioned by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LedgerInconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_inconsistencies_total",
			Help: "Subscription facts detected without a matching ledger entry.",
		}),
		registry: prometheus.NewRegistry(),
		log:      log,
	}
	p.registry.MustRegister(p.reqCnt, p.reqDur, p.ConfirmationsTotal, p.LedgerInconsistencies)
	return p
}

// Middleware records request count and latency for every handled route.
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		code := strconv.Itoa(c.Writer.Status())
		p.reqCnt.WithLabelValues(code, c.Request.Method, route).Inc()
		p.reqDur.WithLabelValues(code, c.Request.Method, route).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}

// Serve exposes /metrics on its own listener so the scrape endpoint never
// shares a port with the public API.
func (p *Prometheus) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			p.log.Errorf("metrics listener stopped: %v", err)
		}
	}()
}
