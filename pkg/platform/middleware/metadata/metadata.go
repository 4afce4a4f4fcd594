// Package metadata lifts caller metadata off request headers into the context.
package metadata

import (
	"context"
	"net/http"
	"strings"

	platformstrings "extid/pkg/platform/strings"
	"extid/pkg/requestcontext"
)

// CallerStudiesHeader lists the study IDs a caller may see, comma separated.
// An absent or blank header means the caller is unrestricted.
const CallerStudiesHeader = "X-Caller-Studies"

type contextKeyClientIP struct{}

// ClientMetadata stores the client IP and caller study scope on the context.
// Apply it before any handler that reads either.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyClientIP{}, ClientIPFromRequest(r))
		ctx = requestcontext.WithCallerStudies(ctx, ParseCallerStudies(r.Header.Get(CallerStudiesHeader)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseCallerStudies splits a header value into trimmed, distinct, non-blank
// study IDs.
func ParseCallerStudies(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(value, ","))
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// ClientIPFromRequest prefers proxy headers over RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
