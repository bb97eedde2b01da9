package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Methods are
// nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// HTTP surface
	HTTPLatency *prometheus.HistogramVec

	// Auth
	UsersRegistered prometheus.Counter
	Logins          *prometheus.CounterVec

	// Client registrations
	ClientsRegistered prometheus.Counter

	// RUC validation outcomes by first violated rule
	RUCValidations *prometheus.CounterVec

	// Bluetooth link
	BluetoothScans          prometheus.Counter
	BluetoothConnects       *prometheus.CounterVec
	BluetoothDisconnects    prometheus.Counter
	BluetoothWrites         prometheus.Counter
	BluetoothNotifications  prometheus.Counter
	BluetoothScanLatency    prometheus.Histogram
	BluetoothConnectLatency prometheus.Histogram

	// Audit pipeline
	AuditDropped prometheus.Counter

	// WebSocket event stream
	WSClients prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the default
// registry. Call once per process.
func New() *Metrics {
	return &Metrics{
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ruconnect_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),

		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_users_registered_total",
			Help: "Total number of local accounts created",
		}),

		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruconnect_logins_total",
			Help: "Total login attempts by result",
		}, []string{"result"}), // result: "success", "failure"

		ClientsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_clients_registered_total",
			Help: "Total client-registration records created",
		}),

		RUCValidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruconnect_ruc_validations_total",
			Help: "Total RUC validations by outcome",
		}, []string{"outcome"}), // outcome: "valid" or the violated rule

		BluetoothScans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_bluetooth_scans_total",
			Help: "Total Bluetooth scans started",
		}),

		BluetoothConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruconnect_bluetooth_connects_total",
			Help: "Total Bluetooth connection attempts by result",
		}, []string{"result"}), // result: "success", "failure"

		BluetoothDisconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_bluetooth_disconnects_total",
			Help: "Total link teardowns, requested or lost",
		}),

		BluetoothWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_bluetooth_writes_total",
			Help: "Total characteristic writes to the peripheral",
		}),

		BluetoothNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_bluetooth_notifications_total",
			Help: "Total characteristic notifications received from the peripheral",
		}),

		BluetoothScanLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ruconnect_bluetooth_scan_duration_seconds",
			Help:    "Duration of Bluetooth scans",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30},
		}),

		BluetoothConnectLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ruconnect_bluetooth_connect_duration_seconds",
			Help:    "Duration of Bluetooth connect and service discovery",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruconnect_audit_events_dropped_total",
			Help: "Audit events dropped because the worker inbox was full",
		}),

		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ruconnect_ws_clients",
			Help: "Connected WebSocket event-stream clients",
		}),
	}
}

// ObserveHTTPLatency records one served request.
func (m *Metrics) ObserveHTTPLatency(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

// IncrementUsersRegistered records a created account.
func (m *Metrics) IncrementUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}

// IncrementLogin records a login attempt outcome.
func (m *Metrics) IncrementLogin(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

// IncrementClientsRegistered records a created client record.
func (m *Metrics) IncrementClientsRegistered() {
	if m != nil {
		m.ClientsRegistered.Inc()
	}
}

// IncrementRUCValidation records a validation outcome.
func (m *Metrics) IncrementRUCValidation(outcome string) {
	if m != nil {
		m.RUCValidations.WithLabelValues(outcome).Inc()
	}
}

// IncrementBluetoothScan records a started scan.
func (m *Metrics) IncrementBluetoothScan() {
	if m != nil {
		m.BluetoothScans.Inc()
	}
}

// IncrementBluetoothConnect records a connection attempt outcome.
func (m *Metrics) IncrementBluetoothConnect(result string) {
	if m != nil {
		m.BluetoothConnects.WithLabelValues(result).Inc()
	}
}

// IncrementBluetoothDisconnect records a link teardown.
func (m *Metrics) IncrementBluetoothDisconnect() {
	if m != nil {
		m.BluetoothDisconnects.Inc()
	}
}

// IncrementBluetoothWrite records a characteristic write.
func (m *Metrics) IncrementBluetoothWrite() {
	if m != nil {
		m.BluetoothWrites.Inc()
	}
}

// IncrementBluetoothNotification records a received notification.
func (m *Metrics) IncrementBluetoothNotification() {
	if m != nil {
		m.BluetoothNotifications.Inc()
	}
}

// ObserveBluetoothScan records a completed scan duration.
func (m *Metrics) ObserveBluetoothScan(d time.Duration) {
	if m != nil {
		m.BluetoothScanLatency.Observe(d.Seconds())
	}
}

// ObserveBluetoothConnect records a completed connect duration.
func (m *Metrics) ObserveBluetoothConnect(d time.Duration) {
	if m != nil {
		m.BluetoothConnectLatency.Observe(d.Seconds())
	}
}

// IncrementAuditDropped records a dropped audit event.
func (m *Metrics) IncrementAuditDropped() {
	if m != nil {
		m.AuditDropped.Inc()
	}
}

// AddWSClient adjusts the connected WebSocket client gauge.
func (m *Metrics) AddWSClient(delta float64) {
	if m != nil {
		m.WSClients.Add(delta)
	}
}
