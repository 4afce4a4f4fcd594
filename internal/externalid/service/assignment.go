package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"extid/internal/externalid/models"
	dErrors "extid/pkg/domain-errors"
	"extid/pkg/platform/audit"
	"extid/pkg/platform/sentinel"
)

// CreateExternalID adds an unassigned identifier. An existing record with
// the same identifier is overwritten.
func (s *Service) CreateExternalID(ctx context.Context, externalID *models.ExternalID) error {
	if err := externalID.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, externalID, models.GuardNone); err != nil {
		return storeError("create external id", err)
	}
	s.logAudit(ctx, audit.EventExternalIDCreated, externalID.AppID, externalID.Identifier, externalID.StudyID)
	return nil
}

// DeleteExternalID removes an identifier whatever its assignment state.
func (s *Service) DeleteExternalID(ctx context.Context, appID, identifier string) error {
	if err := requireKey(appID, identifier); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, appID, identifier); err != nil {
		return storeError("delete external id", err)
	}
	s.logAudit(ctx, audit.EventExternalIDDeleted, appID, identifier, "")
	return nil
}

// GetExternalID loads one identifier.
func (s *Service) GetExternalID(ctx context.Context, appID, identifier string) (*models.ExternalID, error) {
	if err := requireKey(appID, identifier); err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, appID, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "external ID not found")
		}
		return nil, storeError("get external id", err)
	}
	return record, nil
}

// CommitAssignment binds externalID to the account in its HealthCode.
//
// The write is guarded on the stored record existing with no HealthCode, so
// of two concurrent commits for the same identifier exactly one succeeds; the
// other gets CodeConflict. A record deleted before the write lands gives
// CodeConcurrentModification. Conflicts are not retried. A nil externalID is
// a no-op.
func (s *Service) CommitAssignment(ctx context.Context, externalID *models.ExternalID) error {
	if externalID == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "externalid.CommitAssignment")
	defer span.End()
	span.SetAttributes(attribute.String("app_id", externalID.AppID))

	if externalID.HealthCode == "" {
		return errConcurrentModification()
	}
	current, err := s.store.Get(ctx, externalID.AppID, externalID.Identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return errConcurrentModification()
		}
		return storeError("load external id", err)
	}

	// Only the binding changes; the stored study attribution is kept.
	bound := current.Clone()
	bound.HealthCode = externalID.HealthCode
	if err := s.store.Save(ctx, bound, models.GuardUnassigned); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.deletedSinceLoad(ctx, bound) {
				s.logAudit(ctx, audit.EventAssignmentConflict, bound.AppID, bound.Identifier, bound.StudyID,
					"reason", "deleted")
				return errConcurrentModification()
			}
			s.metrics.IncrementAssignmentConflicts()
			s.logAudit(ctx, audit.EventAssignmentConflict, bound.AppID, bound.Identifier, bound.StudyID,
				"reason", "already_assigned")
			return dErrors.Wrap(err, dErrors.CodeConflict, "external ID is already assigned: "+bound.Identifier)
		}
		return storeError("commit assignment", err)
	}

	s.metrics.IncrementAssignmentsCommitted()
	s.logAudit(ctx, audit.EventExternalIDAssigned, bound.AppID, bound.Identifier, bound.StudyID)
	return nil
}

// Unassign releases identifier from account if account holds it.
//
// The loaded record is returned whether or not it was released, so the
// caller can remove its own enrollment for the record's StudyID. A missing
// identifier returns (nil, nil).
func (s *Service) Unassign(ctx context.Context, account models.Account, identifier string) (*models.ExternalID, error) {
	if err := requireKey(account.AppID, identifier); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "externalid.Unassign")
	defer span.End()
	span.SetAttributes(attribute.String("app_id", account.AppID))

	record, err := s.store.Get(ctx, account.AppID, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError("load external id", err)
	}
	if account.HealthCode == "" || record.HealthCode != account.HealthCode {
		return record, nil
	}

	// Last writer wins; only the owning account gets here.
	record.HealthCode = ""
	if err := s.store.Save(ctx, record, models.GuardNone); err != nil {
		return nil, storeError("release external id", err)
	}
	s.metrics.IncrementAssignmentsReleased()
	s.logAudit(ctx, audit.EventExternalIDUnassigned, record.AppID, record.Identifier, record.StudyID)
	return record, nil
}

// deletedSinceLoad reports whether a guarded commit failed because the
// record is gone. Read errors count as "not deleted" so the caller reports
// the conflict it already has.
func (s *Service) deletedSinceLoad(ctx context.Context, record *models.ExternalID) bool {
	_, err := s.store.Get(ctx, record.AppID, record.Identifier)
	return errors.Is(err, sentinel.ErrNotFound)
}

func errConcurrentModification() error {
	return dErrors.New(dErrors.CodeConcurrentModification, "external ID was concurrently deleted or assigned")
}

func requireKey(appID, identifier string) error {
	if strings.TrimSpace(appID) == "" {
		return dErrors.New(dErrors.CodeValidation, "appId is required")
	}
	if strings.TrimSpace(identifier) == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	return nil
}
