// Package metadata captures where a request came from so redemption audit
// lines can attribute a signup to a client address and device, and the rate
// limiter can key anonymous callers.
package metadata

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Client describes the caller's network origin.
type Client struct {
	IP        string
	UserAgent string
	Device    string
}

type clientKey struct{}

// ClientMetadata stores the caller's Client on the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClientMetadata injects a Client for code paths that skip the middleware,
// such as service tests.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, Client{
		IP:        clientIP,
		UserAgent: userAgent,
		Device:    ParseUserAgent(userAgent),
	})
}

// FromContext returns the stored Client, if any.
func FromContext(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(clientKey{}).(Client)
	return c, ok
}

func GetClientIP(ctx context.Context) string {
	c, _ := FromContext(ctx)
	return c.IP
}

func GetUserAgent(ctx context.Context) string {
	c, _ := FromContext(ctx)
	return c.UserAgent
}

// GetDevice returns the display name derived from the User-Agent,
// e.g. "Chrome on Intel Mac OS X 10_15_7".
func GetDevice(ctx context.Context) string {
	c, _ := FromContext(ctx)
	return c.Device
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the socket address. Header values that are not IP addresses are skipped.
// Returns "" when nothing usable is present.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := normalizeIP(first); ok {
			return ip
		}
	}
	if ip, ok := normalizeIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := normalizeIP(host); ok {
		return ip
	}
	return ""
}

func normalizeIP(raw string) (string, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
