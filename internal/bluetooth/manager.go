package bluetooth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ruconnect/internal/platform/config"
	"ruconnect/internal/platform/metrics"
	dErrors "ruconnect/pkg/domain-errors"
)

var tracer = otel.Tracer("ruconnect/internal/bluetooth")

const defaultEventBuffer = 64

// Manager owns the companion link. At most one scan or one session is
// in flight at a time; every state change surfaces on the event stream.
type Manager struct {
	transport Transport
	cfg       config.BluetoothConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time

	mu         sync.Mutex
	state      LinkState
	devices    map[string]*Device
	scanCancel context.CancelFunc
	scanDone   chan struct{}
	peripheral Peripheral
	current    *Device
	info       *DeviceInfo
	linkedAt   *time.Time
	lastError  string

	events chan Event
}

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithManagerClock sets the clock function for testability.
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewManager enables the transport and registers for link-drop
// callbacks. The returned manager starts idle.
func NewManager(transport Transport, cfg config.BluetoothConfig, m *metrics.Metrics, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	mgr := &Manager{
		transport: transport,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		clock:     time.Now,
		state:     LinkStateIdle,
		devices:   make(map[string]*Device),
		events:    make(chan Event, cfg.EventBuffer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mgr)
		}
	}
	if err := transport.Enable(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "enabling bluetooth adapter")
	}
	transport.SetDisconnectHandler(mgr.handleDeviceLost)
	return mgr, nil
}

// Scan sweeps for advertisements for the given window (the configured
// default when zero) and returns the sighted devices strongest-signal
// first. Devices are deduplicated by address, keeping the best RSSI.
// A scan cannot start while another scan or a session is in flight.
func (m *Manager) Scan(ctx context.Context, window time.Duration) ([]Device, error) {
	ctx, span := tracer.Start(ctx, "bluetooth.Scan")
	defer span.End()

	if window <= 0 {
		window = m.cfg.ScanWindow
	}

	m.mu.Lock()
	if m.state == LinkStateScanning {
		m.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "a scan is already running")
	}
	if !m.state.Settled() {
		m.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "a companion session is active")
	}
	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	done := make(chan struct{})
	m.state = LinkStateScanning
	m.devices = make(map[string]*Device)
	m.scanCancel = cancel
	m.scanDone = done
	m.mu.Unlock()

	m.metrics.IncrementBluetoothScan()
	m.emit(EventScanStarted, map[string]any{"window_ms": window.Milliseconds()})
	m.logger.Info("bluetooth scan started", "window", window)
	started := m.clock()

	err := m.transport.Scan(scanCtx, m.observe)
	close(done)

	m.mu.Lock()
	// Connect may have preempted the scan; only a still-scanning
	// manager returns to idle.
	if m.state == LinkStateScanning {
		m.state = LinkStateIdle
	}
	m.scanCancel = nil
	m.scanDone = nil
	devices := m.devicesLocked()
	m.mu.Unlock()

	m.metrics.ObserveBluetoothScan(m.clock().Sub(started))
	if err != nil {
		m.emit(EventLinkError, map[string]any{"stage": "scan", "error": err.Error()})
		m.logger.Error("bluetooth scan failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "bluetooth scan failed")
	}

	m.emit(EventScanFinished, map[string]any{"devices": len(devices)})
	m.logger.Info("bluetooth scan finished", "devices", len(devices))
	span.SetAttributes(attribute.Int("bluetooth.devices_found", len(devices)))
	return devices, nil
}

// observe folds one advertisement into the scan snapshot. Repeat
// sightings refresh the record without re-announcing the device.
func (m *Manager) observe(adv Advertisement) {
	m.mu.Lock()
	if known, ok := m.devices[adv.Address]; ok {
		if adv.RSSI > known.RSSI {
			known.RSSI = adv.RSSI
		}
		if adv.Name != "" {
			known.Name = adv.Name
		}
		known.LastSeen = m.clock()
		m.mu.Unlock()
		return
	}
	device := &Device{
		Address:  adv.Address,
		Name:     adv.Name,
		RSSI:     adv.RSSI,
		LastSeen: m.clock(),
	}
	m.devices[adv.Address] = device
	m.mu.Unlock()

	m.emit(EventScanDeviceFound, map[string]any{
		"address": device.Address,
		"name":    device.Name,
		"rssi":    device.RSSI,
	})
}

// Connect establishes the single companion session: dial, discover the
// fixed profile, subscribe to state notifications and read the device
// identity. A running scan is preempted first. Any step failing tears
// the link down and records the cause on the status.
func (m *Manager) Connect(ctx context.Context, address string) (*Status, error) {
	ctx, span := tracer.Start(ctx, "bluetooth.Connect")
	defer span.End()
	span.SetAttributes(attribute.String("bluetooth.address", address))

	if strings.TrimSpace(address) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "device address required")
	}

	m.mu.Lock()
	if m.state == LinkStateConnecting || m.state == LinkStateConnected {
		m.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "a companion session is already active")
	}
	scanCancel, scanDone := m.scanCancel, m.scanDone
	preempted := m.state == LinkStateScanning
	m.state = LinkStateConnecting
	m.lastError = ""
	m.mu.Unlock()

	if preempted {
		// The scan must fully stop before dialing.
		if scanCancel != nil {
			scanCancel()
		}
		if scanDone != nil {
			<-scanDone
		}
	}

	m.emit(EventLinkConnecting, map[string]any{"address": address})
	started := m.clock()

	peripheral, err := m.transport.Connect(ctx, address)
	if err != nil {
		return nil, m.connectFailed(address, "connect", err)
	}
	if err := peripheral.DiscoverProfile(ctx); err != nil {
		m.teardown(peripheral, address)
		return nil, m.connectFailed(address, "discover", err)
	}
	if err := peripheral.Subscribe(m.handleNotification); err != nil {
		m.teardown(peripheral, address)
		return nil, m.connectFailed(address, "subscribe", err)
	}
	raw, err := peripheral.ReadDeviceInfo(ctx)
	if err != nil {
		m.teardown(peripheral, address)
		return nil, m.connectFailed(address, "device_info", err)
	}
	info, err := parseDeviceInfo(raw)
	if err != nil {
		// A link that works but misreports its identity stays up.
		m.logger.Warn("companion device info unreadable", "address", address, "error", err)
	}

	now := m.clock()
	m.mu.Lock()
	m.state = LinkStateConnected
	m.peripheral = peripheral
	m.current = m.deviceForLocked(address)
	m.info = info
	m.linkedAt = &now
	status := m.statusLocked()
	m.mu.Unlock()

	m.metrics.IncrementBluetoothConnect("success")
	m.metrics.ObserveBluetoothConnect(now.Sub(started))
	m.emit(EventLinkConnected, map[string]any{"address": address})
	m.logger.Info("companion connected", "address", address)
	return status, nil
}

// Write sends a command payload to the companion. The firmware echoes
// it back as a notification.
func (m *Manager) Write(ctx context.Context, payload []byte) error {
	ctx, span := tracer.Start(ctx, "bluetooth.Write")
	defer span.End()

	if len(payload) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "payload required")
	}
	if len(payload) > m.cfg.WriteLimit {
		return dErrors.Newf(dErrors.CodeBadRequest, "payload exceeds %d bytes", m.cfg.WriteLimit)
	}

	peripheral, err := m.session()
	if err != nil {
		return err
	}

	n, err := peripheral.WriteCommand(ctx, payload)
	if err != nil {
		m.emit(EventLinkError, map[string]any{"stage": "write", "error": err.Error()})
		m.logger.Error("companion write failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "companion write failed")
	}

	m.metrics.IncrementBluetoothWrite()
	m.emit(EventLinkWrite, map[string]any{"size": n})
	span.SetAttributes(attribute.Int("bluetooth.bytes_written", n))
	return nil
}

// ReadDeviceInfo fetches the companion identity from its device-info
// characteristic, refreshing the cached copy on the status.
func (m *Manager) ReadDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	ctx, span := tracer.Start(ctx, "bluetooth.ReadDeviceInfo")
	defer span.End()

	peripheral, err := m.session()
	if err != nil {
		return nil, err
	}

	raw, err := peripheral.ReadDeviceInfo(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "reading companion device info")
	}
	info, err := parseDeviceInfo(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "companion device info malformed")
	}

	m.mu.Lock()
	m.info = info
	m.mu.Unlock()

	out := *info
	return &out, nil
}

// Disconnect tears the session down gracefully.
func (m *Manager) Disconnect(ctx context.Context) error {
	_, span := tracer.Start(ctx, "bluetooth.Disconnect")
	defer span.End()

	m.mu.Lock()
	if m.state != LinkStateConnected || m.peripheral == nil {
		m.mu.Unlock()
		return dErrors.New(dErrors.CodeUnavailable, "no companion connected")
	}
	peripheral := m.peripheral
	address := m.current.Address
	m.state = LinkStateDisconnected
	m.peripheral = nil
	m.linkedAt = nil
	m.mu.Unlock()

	err := peripheral.Disconnect()

	m.metrics.IncrementBluetoothDisconnect()
	m.emit(EventLinkDisconnected, map[string]any{"address": address, "reason": "requested"})
	m.logger.Info("companion disconnected", "address", address)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "companion disconnect failed")
	}
	return nil
}

// Status returns a snapshot of the link.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.statusLocked()
}

// Devices returns the last scan snapshot, strongest signal first.
func (m *Manager) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devicesLocked()
}

// Events exposes the link event stream. Slow readers lose the oldest
// events; link callbacks never block on delivery.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// session returns the live peripheral or an error when no session is up.
func (m *Manager) session() (Peripheral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != LinkStateConnected || m.peripheral == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no companion connected")
	}
	return m.peripheral, nil
}

// handleNotification re-broadcasts a state-characteristic notification.
func (m *Manager) handleNotification(payload []byte) {
	m.metrics.IncrementBluetoothNotification()
	m.emit(EventLinkNotification, map[string]any{
		"payload": string(payload),
		"size":    len(payload),
	})
}

// handleDeviceLost reacts to a transport-level link drop. Drops for a
// device other than the current session, and drops the manager itself
// requested, are ignored.
func (m *Manager) handleDeviceLost(address string) {
	m.mu.Lock()
	if m.state != LinkStateConnected || m.current == nil || m.current.Address != address {
		m.mu.Unlock()
		return
	}
	m.state = LinkStateDisconnected
	m.peripheral = nil
	m.linkedAt = nil
	m.lastError = "link lost"
	m.mu.Unlock()

	m.metrics.IncrementBluetoothDisconnect()
	m.emit(EventLinkDisconnected, map[string]any{"address": address, "reason": "link_lost"})
	m.logger.Warn("companion link lost", "address", address)
}

// connectFailed records a failed session attempt and returns the
// caller-facing error.
func (m *Manager) connectFailed(address, stage string, err error) error {
	m.mu.Lock()
	m.state = LinkStateDisconnected
	m.peripheral = nil
	m.linkedAt = nil
	m.lastError = err.Error()
	m.mu.Unlock()

	m.metrics.IncrementBluetoothConnect("failure")
	m.emit(EventLinkError, map[string]any{"stage": stage, "address": address, "error": err.Error()})
	m.logger.Error("companion connect failed", "address", address, "stage", stage, "error", err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "companion connection failed")
}

func (m *Manager) teardown(peripheral Peripheral, address string) {
	if err := peripheral.Disconnect(); err != nil {
		m.logger.Warn("releasing half-open link", "address", address, "error", err)
	}
}

// emit delivers an event without ever blocking: when the buffer is
// full the oldest event is dropped to make room.
func (m *Manager) emit(eventType EventType, payload map[string]any) {
	event := Event{Type: eventType, Payload: payload, At: m.clock()}
	for {
		select {
		case m.events <- event:
			return
		default:
		}
		select {
		case dropped := <-m.events:
			m.logger.Debug("dropping oldest bluetooth event", "type", dropped.Type)
		default:
		}
	}
}

func (m *Manager) statusLocked() *Status {
	status := &Status{State: m.state, LastError: m.lastError}
	if m.current != nil {
		device := *m.current
		status.Device = &device
	}
	if m.info != nil {
		info := *m.info
		status.Info = &info
	}
	if m.linkedAt != nil {
		at := *m.linkedAt
		status.ConnectedAt = &at
	}
	return status
}

func (m *Manager) devicesLocked() []Device {
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	// Strongest signal first; ties broken by address for a stable order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// deviceForLocked returns the scan record for address, or a minimal one
// when the caller connected without a prior scan.
func (m *Manager) deviceForLocked(address string) *Device {
	if d, ok := m.devices[address]; ok {
		copied := *d
		return &copied
	}
	return &Device{Address: address, LastSeen: m.clock()}
}

func parseDeviceInfo(raw []byte) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decoding device info payload: %w", err)
	}
	return &info, nil
}
