package handler

import "ruconnect/internal/bluetooth"

// ScanRequest is the optional payload for POST /bluetooth/scan. A zero
// window falls back to the configured default.
type ScanRequest struct {
	WindowMS int64 `json:"window_ms"`
}

// WriteRequest is the payload for POST /bluetooth/write. The payload is
// sent verbatim to the command characteristic; the companion echoes it
// back on the state characteristic.
type WriteRequest struct {
	Payload string `json:"payload"`
}

// DeviceListResponse is the HTTP response for scan and device listings.
type DeviceListResponse struct {
	Devices []bluetooth.Device `json:"devices"`
	Count   int                `json:"count"`
}
