package middleware

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClientIPKey is the context key for the end-user address
	ClientIPKey contextKey = "client_ip"
)

// Headers carrying the end-user address, in order of preference
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor   = "X-Forwarded-For"
)

// GetRequestIDFromContext retrieves the chi request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// GetClientIPFromContext retrieves the end-user address from context.
// Empty when the request carried no forwarding headers.
func GetClientIPFromContext(ctx context.Context) string {
	if val := ctx.Value(ClientIPKey); val != nil {
		if ip, ok := val.(string); ok {
			return ip
		}
	}
	return ""
}

// WithClientIP adds the end-user address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// ClientIP extracts the end-user address set by the edge proxy.
// CF-Connecting-IP wins over the first X-Forwarded-For hop.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIPFromHeaders(r.Header); ip != "" {
			r = r.WithContext(WithClientIP(r.Context(), ip))
		}
		next.ServeHTTP(w, r)
	})
}

func clientIPFromHeaders(h http.Header) string {
	if ip := strings.TrimSpace(h.Get(HeaderCFConnectingIP)); ip != "" {
		return ip
	}
	if fwd := h.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return ""
}
