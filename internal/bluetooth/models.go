// Package bluetooth manages the link to the companion microcontroller:
// bounded scans, a single connect/read/write/subscribe session against a
// fixed GATT profile, and an event stream mirroring every link change.
package bluetooth

import "time"

// LinkState describes where the manager is in the scan/session cycle.
type LinkState string

const (
	LinkStateIdle         LinkState = "idle"
	LinkStateScanning     LinkState = "scanning"
	LinkStateConnecting   LinkState = "connecting"
	LinkStateConnected    LinkState = "connected"
	LinkStateDisconnected LinkState = "disconnected"
)

// Settled reports whether no scan or session is in flight, i.e. a new
// scan or connect may start.
func (s LinkState) Settled() bool {
	return s == LinkStateIdle || s == LinkStateDisconnected
}

// Device is a peripheral sighted during a scan. RSSI holds the
// strongest reading seen for the address across the scan window.
type Device struct {
	Address  string    `json:"address"`
	Name     string    `json:"name,omitempty"`
	RSSI     int16     `json:"rssi"`
	LastSeen time.Time `json:"last_seen"`
}

// DeviceInfo is the static identity the companion serves on its
// device-info characteristic.
type DeviceInfo struct {
	Name     string `json:"name"`
	Firmware string `json:"firmware"`
	Serial   string `json:"serial"`
}

// Status is a point-in-time snapshot of the link.
type Status struct {
	State       LinkState   `json:"state"`
	Device      *Device     `json:"device,omitempty"`
	Info        *DeviceInfo `json:"info,omitempty"`
	ConnectedAt *time.Time  `json:"connected_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}

// EventType labels a link event.
type EventType string

const (
	EventScanStarted      EventType = "scan.started"
	EventScanDeviceFound  EventType = "scan.device_found"
	EventScanFinished     EventType = "scan.finished"
	EventLinkConnecting   EventType = "link.connecting"
	EventLinkConnected    EventType = "link.connected"
	EventLinkDisconnected EventType = "link.disconnected"
	EventLinkNotification EventType = "link.notification"
	EventLinkWrite        EventType = "link.write"
	EventLinkError        EventType = "link.error"
)

// Event is one link occurrence, shaped for direct JSON broadcast.
type Event struct {
	Type    EventType      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}
