package testutil

import (
	"net/http"

	"extid/pkg/platform/middleware/metadata"
	"extid/pkg/requestcontext"
)

// WithCallerStudies scopes the request to studies the way the metadata
// middleware would, for handlers exercised without the middleware chain.
func WithCallerStudies(req *http.Request, studies ...string) *http.Request {
	return req.WithContext(requestcontext.WithCallerStudies(req.Context(), studies))
}

// WithCallerStudiesHeader sets the header the metadata middleware parses.
func WithCallerStudiesHeader(req *http.Request, studies string) *http.Request {
	req.Header.Set(metadata.CallerStudiesHeader, studies)
	return req
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
