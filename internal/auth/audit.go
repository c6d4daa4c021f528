package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// AuditEntry describes one authenticated operation.
type AuditEntry struct {
	Action    string
	Resource  string
	IPAddress string
	UserAgent string
	Status    int
	Details   map[string]any
}

// NewAuditEntry fills the request-derived fields of an entry.
func NewAuditEntry(r *http.Request, action, resource string) AuditEntry {
	return AuditEntry{
		Action:    action,
		Resource:  resource,
		IPAddress: GetIPAddress(r),
		UserAgent: r.UserAgent(),
	}
}

// LogAudit writes the entry as one structured log line.
func LogAudit(log zerolog.Logger, entry AuditEntry) {
	ev := log.Info()
	if entry.Status >= 400 {
		ev = log.Warn()
	}
	ev.Str("audit_action", entry.Action).
		Str("resource", entry.Resource).
		Str("ip", entry.IPAddress).
		Str("user_agent", entry.UserAgent).
		Int("status", entry.Status).
		Fields(entry.Details).
		Msg("audit")
}

// GetIPAddress extracts the client IP from the request. Proxy headers win
// over RemoteAddr; only the first X-Forwarded-For hop is used.
func GetIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
