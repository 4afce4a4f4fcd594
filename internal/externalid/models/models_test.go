package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "extid/pkg/domain-errors"
)

func TestListRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ListRequest
		wantErr bool
	}{
		{"minimum page size", ListRequest{AppID: "app1", PageSize: 1}, false},
		{"maximum page size", ListRequest{AppID: "app1", PageSize: 100}, false},
		{"zero page size", ListRequest{AppID: "app1", PageSize: 0}, true},
		{"page size over maximum", ListRequest{AppID: "app1", PageSize: 101}, true},
		{"negative page size", ListRequest{AppID: "app1", PageSize: -5}, true},
		{"missing app", ListRequest{PageSize: 10}, true},
		{"oversized filter", ListRequest{AppID: "app1", PageSize: 10, IDFilter: strings.Repeat("x", 256)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(100)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseAssignmentFilter(t *testing.T) {
	f, err := ParseAssignmentFilter("")
	require.NoError(t, err)
	assert.Equal(t, AssignmentAny, f)

	f, err = ParseAssignmentFilter("TRUE")
	require.NoError(t, err)
	assert.Equal(t, AssignmentAssigned, f)

	f, err = ParseAssignmentFilter("false")
	require.NoError(t, err)
	assert.Equal(t, AssignmentUnassigned, f)

	_, err = ParseAssignmentFilter("maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAssignmentFilterMatches(t *testing.T) {
	assigned := &ExternalID{Identifier: "a", HealthCode: "hc"}
	unassigned := &ExternalID{Identifier: "b"}

	assert.True(t, AssignmentAny.Matches(assigned))
	assert.True(t, AssignmentAny.Matches(unassigned))
	assert.True(t, AssignmentAssigned.Matches(assigned))
	assert.False(t, AssignmentAssigned.Matches(unassigned))
	assert.False(t, AssignmentUnassigned.Matches(assigned))
	assert.True(t, AssignmentUnassigned.Matches(unassigned))
}

func TestExternalIDValidate(t *testing.T) {
	assert.NoError(t, (&ExternalID{AppID: "app1", Identifier: "ext-1"}).Validate())
	assert.Error(t, (&ExternalID{AppID: "app1"}).Validate())
	assert.Error(t, (&ExternalID{Identifier: "ext-1"}).Validate())
	assert.Error(t, (&ExternalID{AppID: "app1", Identifier: "ext-1", HealthCode: "hc"}).Validate())

	var nilID *ExternalID
	assert.True(t, dErrors.HasCode(nilID.Validate(), dErrors.CodeBadRequest))
}

func TestNewCallerStudies(t *testing.T) {
	assert.True(t, NewCallerStudies().Unrestricted())
	assert.True(t, NewCallerStudies("", "  ").Unrestricted())

	set := NewCallerStudies("study-a", " study-b ")
	assert.False(t, set.Unrestricted())
	assert.True(t, set.Contains("study-b"))
	assert.False(t, set.Contains("study-c"))
}

func TestNewForwardCursorPage(t *testing.T) {
	page := NewForwardCursorPage(nil, "p-49", ListRequest{
		AppID: "app1", OffsetKey: "p-00", PageSize: 50, IDFilter: "p-", Assignment: AssignmentUnassigned,
	})

	assert.True(t, page.HasNext())
	assert.Equal(t, 50, page.RequestParams[ParamPageSize])
	assert.Equal(t, "p-00", page.RequestParams[ParamOffsetKey])
	assert.Equal(t, "p-", page.RequestParams[ParamIDFilter])
	assert.Equal(t, false, page.RequestParams[ParamAssignmentFilter])
}
