package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	salesCommitted prometheus.Counter
	salesRejected  *prometheus.CounterVec
	saleLines      prometheus.Counter
	httpDuration   *prometheus.HistogramVec
}

// New registers every collector on reg. Tests pass a fresh
// prometheus.NewRegistry() so they never touch the global one.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		salesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_committed_total",
			Help: "Sales committed with all of their lines.",
		}),
		salesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_sales_rejected_total",
			Help: "Sale attempts rolled back, by error code.",
		}, []string{"reason"}),
		saleLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sale_line_items_total",
			Help: "Line items of committed sales.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(m.salesCommitted, m.salesRejected, m.saleLines, m.httpDuration)
	return m
}

func (m *Metrics) SaleCommitted(lines int) {
	m.salesCommitted.Inc()
	m.saleLines.Add(float64(lines))
}

func (m *Metrics) SaleRejected(reason string) {
	m.salesRejected.WithLabelValues(reason).Inc()
}

// Middleware observes request latency labelled by the route template, not
// the raw path, to keep the label set bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpDuration.
				WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
