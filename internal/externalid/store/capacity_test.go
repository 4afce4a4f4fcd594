package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"extid/internal/externalid/models"
)

func TestEstimateReadCapacity(t *testing.T) {
	t.Run("empty scan costs one unit", func(t *testing.T) {
		assert.Equal(t, 1.0, EstimateReadCapacity(nil))
	})

	t.Run("rounds up to whole units", func(t *testing.T) {
		records := make([]*models.ExternalID, 0, 200)
		for i := range 200 {
			records = append(records, &models.ExternalID{
				AppID:      "app1",
				Identifier: fmt.Sprintf("participant-%04d", i),
				StudyID:    "study-a",
				HealthCode: "5a1f3b0e-6c0d-4b8f-9d61-1c2f3e4d5a6b",
			})
		}
		size := RecordSize(records[0])
		want := float64((size*200 + ReadUnitBytes - 1) / ReadUnitBytes)

		assert.Equal(t, want, EstimateReadCapacity(records))
		assert.Greater(t, want, 1.0)
	})
}

func TestRecordSize(t *testing.T) {
	bare := &models.ExternalID{AppID: "a", Identifier: "b"}
	full := &models.ExternalID{AppID: "a", Identifier: "b", StudyID: "s", HealthCode: "h"}

	assert.Equal(t, len("appId")+1+len("identifier")+1, RecordSize(bare))
	assert.Equal(t, RecordSize(bare)+len("studyId")+1+len("healthCode")+1, RecordSize(full))
}
