package models

import (
	"strings"

	dErrors "extid/pkg/domain-errors"
)

// MaxIdentifierLength bounds identifiers and study IDs.
const MaxIdentifierLength = 255

// ListRequest asks for one page of an app's identifier directory.
type ListRequest struct {
	AppID string
	// OffsetKey is the cursor returned by the previous page; "" starts at the beginning.
	OffsetKey  string
	PageSize   int
	IDFilter   string
	Assignment AssignmentFilter
}

func (r *ListRequest) Normalize() {
	if r == nil {
		return
	}
	r.AppID = strings.TrimSpace(r.AppID)
}

// Validate checks the request against the configured page size ceiling.
func (r *ListRequest) Validate(maxPageSize int) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.AppID == "" {
		return dErrors.New(dErrors.CodeValidation, "appId is required")
	}
	if r.PageSize < 1 || r.PageSize > maxPageSize {
		return dErrors.Newf(dErrors.CodeValidation, "invalid paging size: %d (pageSize must be from 1-%d records)", r.PageSize, maxPageSize)
	}
	if len(r.IDFilter) > MaxIdentifierLength {
		return dErrors.New(dErrors.CodeValidation, "idFilter must be 255 characters or less")
	}
	return nil
}

// ParseAssignmentFilter accepts "true", "false" or "" (any).
func ParseAssignmentFilter(value string) (AssignmentFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return AssignmentAny, nil
	case "true":
		return AssignmentAssigned, nil
	case "false":
		return AssignmentUnassigned, nil
	default:
		return AssignmentAny, dErrors.New(dErrors.CodeValidation, "assignmentFilter must be 'true' or 'false'")
	}
}

// Validate checks an identifier record before it is created.
// Follows validation order: Required -> Size -> Semantic.
func (e *ExternalID) Validate() error {
	if e == nil {
		return dErrors.New(dErrors.CodeBadRequest, "external ID is required")
	}
	if e.AppID == "" {
		return dErrors.New(dErrors.CodeValidation, "appId is required")
	}
	if e.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	if len(e.Identifier) > MaxIdentifierLength {
		return dErrors.New(dErrors.CodeValidation, "identifier must be 255 characters or less")
	}
	if len(e.StudyID) > MaxIdentifierLength {
		return dErrors.New(dErrors.CodeValidation, "studyId must be 255 characters or less")
	}
	if e.HealthCode != "" {
		return dErrors.New(dErrors.CodeValidation, "a new external ID cannot be assigned")
	}
	return nil
}

// CreateExternalIDRequest is the body of a create call.
type CreateExternalIDRequest struct {
	Identifier string `json:"identifier"`
	StudyID    string `json:"studyId,omitempty"`
}

func (r *CreateExternalIDRequest) Normalize() {
	if r == nil {
		return
	}
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.StudyID = strings.TrimSpace(r.StudyID)
}

// ToExternalID builds the unassigned record for appID.
func (r *CreateExternalIDRequest) ToExternalID(appID string) *ExternalID {
	return &ExternalID{AppID: appID, Identifier: r.Identifier, StudyID: r.StudyID}
}

// AssignRequest carries the account binding to commit.
type AssignRequest struct {
	HealthCode string `json:"healthCode"`
}

func (r *AssignRequest) Normalize() {
	if r == nil {
		return
	}
	r.HealthCode = strings.TrimSpace(r.HealthCode)
}

func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.HealthCode == "" {
		return dErrors.New(dErrors.CodeValidation, "healthCode is required")
	}
	return nil
}
