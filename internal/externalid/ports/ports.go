// Package ports defines the interfaces the external ID service consumes.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"log/slog"

	"extid/internal/externalid/models"
	"extid/pkg/platform/audit"
	"extid/pkg/requestcontext"
)

// Store is the boundary to the key-value engine holding external IDs.
// Records are keyed by (AppID, Identifier).
type Store interface {
	// Get loads one record. Returns sentinel.ErrNotFound when absent.
	Get(ctx context.Context, appID, identifier string) (*models.ExternalID, error)

	// Save upserts a record. With a guard other than GuardNone the check on
	// the stored record and the write are atomic, a guarded save never
	// inserts, and a failed check returns sentinel.ErrConflict.
	Save(ctx context.Context, externalID *models.ExternalID, guard models.SaveGuard) error

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, appID, identifier string) error

	// Query performs one consistent, bounded range read.
	Query(ctx context.Context, query models.RangeQuery) (*models.RangePage, error)
}

// AuditPublisher emits audit events for assignment and directory changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event to the structured logger and the audit
// publisher if available. Publisher failures are logged, never returned.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs,
		"event", event.Action,
		"app_id", event.AppID,
		"identifier", event.Identifier,
		"log_type", "audit",
	)

	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
