// Package visibility decides how much of an external ID a caller may see.
//
// Every caller sees every identifier and whether it is assigned. The study
// an identifier belongs to is disclosed only to callers that may see that
// study, or to unrestricted callers (empty study set).
package visibility

import "extid/internal/externalid/models"

// Redact returns the directory view of record for a caller.
func Redact(record *models.ExternalID, callerStudies models.CallerStudies) models.ExternalIDInfo {
	info := models.ExternalIDInfo{
		Identifier: record.Identifier,
		Assigned:   record.IsAssigned(),
	}
	if callerStudies.Unrestricted() || callerStudies.Contains(record.StudyID) {
		info.StudyID = record.StudyID
	}
	return info
}
