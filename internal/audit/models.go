// Package audit captures an append-only trail of security- and
// device-relevant actions. Domain services emit events through a
// non-blocking publisher; a worker drains them into the store and,
// when configured, mirrors them to a Kafka-compatible bus.
package audit

import (
	"time"

	"github.com/google/uuid"

	"ruconnect/pkg/domain"
)

// EventType names an auditable action. Types are namespaced by feature
// so downstream consumers can filter on prefix.
type EventType string

const (
	// Auth events
	EventUserRegistered EventType = "auth.user_registered"
	EventLogin          EventType = "auth.login"
	EventLoginFailed    EventType = "auth.login_failed"
	EventLogout         EventType = "auth.logout"
	EventSessionRevoked EventType = "auth.session_revoked"

	// Client registration events
	EventClientRegistered  EventType = "client.registered"
	EventClientUpdated     EventType = "client.updated"
	EventClientDeactivated EventType = "client.deactivated"
	EventClientReactivated EventType = "client.reactivated"

	// Bluetooth link events
	EventLinkConnected    EventType = "bluetooth.connected"
	EventLinkDisconnected EventType = "bluetooth.disconnected"
	EventLinkWrite        EventType = "bluetooth.write"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID      uuid.UUID         `json:"id"`
	Type    EventType         `json:"type"`
	Actor   domain.UserID     `json:"actor,omitempty"`
	Subject string            `json:"subject,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
	At      time.Time         `json:"at"`
}
