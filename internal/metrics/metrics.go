// Package metrics exports Prometheus counters for the HTTP edge and the
// identity and appointment lifecycles.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. A nil *Metrics is valid and records
// nothing, so services can run without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Registrations      *prometheus.CounterVec
	OTPVerifications   *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	PasswordResets     *prometheus.CounterVec
	AppointmentsBooked *prometheus.CounterVec
	StatusChanges      *prometheus.CounterVec
	LinkedAppointments prometheus.Counter
	EmailFailures      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		}, []string{"result"}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by outcome",
		}, []string{"result"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"result"}),
		PasswordResets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset steps by stage and outcome",
		}, []string{"stage", "result"}),
		AppointmentsBooked: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Bookings by caller kind",
		}, []string{"caller"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_changes_total",
			Help:      "Appointment transitions by target status",
		}, []string{"status"}),
		LinkedAppointments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_appointments_linked_total",
			Help:      "Guest appointments attached to an account",
		}),
		EmailFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_dispatch_failures_total",
			Help:      "Outbound emails that could not be delivered",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func inc(v *prometheus.CounterVec, labels ...string) {
	v.WithLabelValues(labels...).Inc()
}

// ObserveRegistration counts a registration outcome.
func (m *Metrics) ObserveRegistration(result string) {
	if m != nil {
		inc(m.Registrations, result)
	}
}

// ObserveOTP counts a verification outcome.
func (m *Metrics) ObserveOTP(result string) {
	if m != nil {
		inc(m.OTPVerifications, result)
	}
}

// ObserveLogin counts a login outcome.
func (m *Metrics) ObserveLogin(result string) {
	if m != nil {
		inc(m.Logins, result)
	}
}

// ObservePasswordReset counts a reset step.
func (m *Metrics) ObservePasswordReset(stage, result string) {
	if m != nil {
		inc(m.PasswordResets, stage, result)
	}
}

// ObserveBooking counts a booking by caller kind (guest or account).
func (m *Metrics) ObserveBooking(caller string) {
	if m != nil {
		inc(m.AppointmentsBooked, caller)
	}
}

// ObserveStatusChange counts a transition to status.
func (m *Metrics) ObserveStatusChange(status string) {
	if m != nil {
		inc(m.StatusChanges, status)
	}
}

// ObserveLinked adds n linked appointments.
func (m *Metrics) ObserveLinked(n int64) {
	if m != nil && n > 0 {
		m.LinkedAppointments.Add(float64(n))
	}
}

// ObserveEmailFailure counts a failed email of kind.
func (m *Metrics) ObserveEmailFailure(kind string) {
	if m != nil {
		inc(m.EmailFailures, kind)
	}
}
