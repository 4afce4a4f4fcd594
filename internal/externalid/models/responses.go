package models

// Request parameter names echoed back on a directory page.
const (
	ParamOffsetKey        = "offsetKey"
	ParamPageSize         = "pageSize"
	ParamIDFilter         = "idFilter"
	ParamAssignmentFilter = "assignmentFilter"
)

// ForwardCursorPage is one page of the identifier directory.
// NextPageOffsetKey is "" when there are no more pages.
type ForwardCursorPage struct {
	Items             []ExternalIDInfo `json:"items"`
	NextPageOffsetKey string           `json:"nextPageOffsetKey,omitempty"`
	RequestParams     map[string]any   `json:"requestParams"`
}

// HasNext reports whether another page can be requested.
func (p *ForwardCursorPage) HasNext() bool {
	return p.NextPageOffsetKey != ""
}

// NewForwardCursorPage echoes the request parameters the way clients sent them.
func NewForwardCursorPage(items []ExternalIDInfo, next string, req ListRequest) *ForwardCursorPage {
	params := map[string]any{
		ParamPageSize: req.PageSize,
	}
	if req.OffsetKey != "" {
		params[ParamOffsetKey] = req.OffsetKey
	}
	if req.IDFilter != "" {
		params[ParamIDFilter] = req.IDFilter
	}
	if p := req.Assignment.Param(); p != "" {
		params[ParamAssignmentFilter] = p == "true"
	}
	return &ForwardCursorPage{
		Items:             items,
		NextPageOffsetKey: next,
		RequestParams:     params,
	}
}

// ExternalIDResponse is the single-record view returned by point reads and releases.
type ExternalIDResponse struct {
	Identifier string `json:"identifier"`
	StudyID    string `json:"studyId,omitempty"`
	Assigned   bool   `json:"assigned"`
}
