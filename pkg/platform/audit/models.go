package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to which account an identifier belongs to.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers directory maintenance (create, delete).
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	Action     string        `json:"action"`
	AppID      string        `json:"app_id,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
	StudyID    string        `json:"study_id,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventExternalIDCreated    AuditEvent = "external_id_created"
	EventExternalIDDeleted    AuditEvent = "external_id_deleted"
	EventExternalIDAssigned   AuditEvent = "external_id_assigned"
	EventExternalIDUnassigned AuditEvent = "external_id_unassigned"
	EventAssignmentConflict   AuditEvent = "external_id_assignment_conflict"
)

// Category returns the category an action is filed under.
func (e AuditEvent) Category() EventCategory {
	switch e {
	case EventExternalIDAssigned, EventExternalIDUnassigned, EventAssignmentConflict:
		return CategoryCompliance
	default:
		return CategoryOperations
	}
}
