// Package store holds helpers shared by the external ID store backends.
package store

import (
	"math"

	"extid/internal/externalid/models"
)

// ReadUnitBytes is the item size one strongly consistent read unit covers.
const ReadUnitBytes = 4096

// EstimateReadCapacity prices a scan the way DynamoDB prices a consistent
// Query: the summed size of every record examined, rounded up to whole 4 KB
// units, with a floor of one unit. Backends that do not report capacity use
// it so the throttle sees comparable numbers across stores.
func EstimateReadCapacity(scanned []*models.ExternalID) float64 {
	total := 0
	for _, r := range scanned {
		total += RecordSize(r)
	}
	return math.Max(1, math.Ceil(float64(total)/ReadUnitBytes))
}

// RecordSize approximates the stored size of a record: attribute names plus values.
func RecordSize(r *models.ExternalID) int {
	size := len("appId") + len(r.AppID) + len("identifier") + len(r.Identifier)
	if r.StudyID != "" {
		size += len("studyId") + len(r.StudyID)
	}
	if r.HealthCode != "" {
		size += len("healthCode") + len(r.HealthCode)
	}
	return size
}
