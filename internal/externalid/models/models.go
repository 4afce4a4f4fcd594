package models

import (
	"strings"
)

// ExternalID is an externally issued participant identifier scoped to an app.
//
// Invariants:
//   - (AppID, Identifier) is unique and Identifier never changes after creation
//   - StudyID is fixed at creation; assignment only touches HealthCode
//   - HealthCode == "" means unassigned (never bound, or released)
//
// HealthCode is the only field conditional writes test, so it is the
// concurrency witness for assignment.
type ExternalID struct {
	AppID      string `json:"appId"`
	Identifier string `json:"identifier"`
	StudyID    string `json:"studyId,omitempty"`
	HealthCode string `json:"-"`
}

// IsAssigned reports whether the identifier is bound to an account.
func (e *ExternalID) IsAssigned() bool {
	return e.HealthCode != ""
}

// Clone returns a copy that shares no state with e.
func (e *ExternalID) Clone() *ExternalID {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// ExternalIDInfo is the directory view of an ExternalID. StudyID is empty
// when the caller may not see the study attribution.
type ExternalIDInfo struct {
	Identifier string `json:"identifier"`
	StudyID    string `json:"studyId,omitempty"`
	Assigned   bool   `json:"assigned"`
}

// Account is the caller-side binding an identifier can be released from.
type Account struct {
	AppID      string
	HealthCode string
}

// SaveGuard is the predicate a conditional save checks on the stored
// record at write time.
type SaveGuard int

const (
	// GuardNone writes unconditionally.
	GuardNone SaveGuard = iota
	// GuardUnassigned requires the record to exist with no HealthCode.
	// A missing record fails it, so a guarded save never creates one.
	GuardUnassigned
)

func (g SaveGuard) String() string {
	switch g {
	case GuardUnassigned:
		return "unassigned"
	default:
		return "none"
	}
}

// AssignmentFilter is the tri-state assignment predicate for directory reads.
type AssignmentFilter int

const (
	AssignmentAny AssignmentFilter = iota
	AssignmentAssigned
	AssignmentUnassigned
)

// Matches reports whether e passes the filter.
func (f AssignmentFilter) Matches(e *ExternalID) bool {
	switch f {
	case AssignmentAssigned:
		return e.IsAssigned()
	case AssignmentUnassigned:
		return !e.IsAssigned()
	default:
		return true
	}
}

// Param renders the filter the way it is accepted on the wire: "true",
// "false" or "" for any.
func (f AssignmentFilter) Param() string {
	switch f {
	case AssignmentAssigned:
		return "true"
	case AssignmentUnassigned:
		return "false"
	default:
		return ""
	}
}

// CallerStudies is the set of study IDs a caller may see attribution for.
// The empty set means unrestricted.
type CallerStudies map[string]struct{}

// NewCallerStudies builds a set, skipping blank IDs.
func NewCallerStudies(ids ...string) CallerStudies {
	set := make(CallerStudies, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Unrestricted reports whether the caller sees every study.
func (c CallerStudies) Unrestricted() bool {
	return len(c) == 0
}

// Contains reports whether studyID is in the set.
func (c CallerStudies) Contains(studyID string) bool {
	_, ok := c[studyID]
	return ok
}

// RangeQuery is one bounded read of an app's identifiers in ascending order.
type RangeQuery struct {
	AppID      string
	IDPrefix   string
	Assignment AssignmentFilter
	// StartAfter is an exclusive start identifier; "" starts at the beginning.
	StartAfter string
	// Limit bounds the raw records examined, before the assignment filter.
	Limit int
}

// RangePage is the result of a RangeQuery.
type RangePage struct {
	Items []*ExternalID
	// LastEvaluatedKey is the identifier the scan stopped at when it hit
	// Limit; "" means the key space is exhausted.
	LastEvaluatedKey string
	ScannedCount     int
	ConsumedCapacity float64
}
