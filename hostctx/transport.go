package hostctx

import "strings"

// TransportKind identifies the transport that delivered a request.
type TransportKind string

const (
	// TransportLocal is a single-client transport such as stdio.
	TransportLocal TransportKind = "local"
	// TransportHTTPShortLived is request/response HTTP (streamable HTTP).
	TransportHTTPShortLived TransportKind = "http-short-lived"
	// TransportHTTPPersistent is a long-lived HTTP stream (SSE).
	TransportHTTPPersistent TransportKind = "http-persistent"
	// TransportUnknown is reported when the host does not say.
	TransportUnknown TransportKind = "unknown"
)

// RequiresIsolation reports whether concurrent callers on this transport may
// belong to different tenants and so must never share the default session.
func (k TransportKind) RequiresIsolation() bool {
	switch k {
	case TransportHTTPShortLived, TransportHTTPPersistent:
		return true
	default:
		return false
	}
}

func (k TransportKind) String() string { return string(k) }

// ParseTransportKind maps the names hosts commonly use for their transports.
// Unrecognized names yield TransportUnknown.
func ParseTransportKind(s string) TransportKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stdio", "local":
		return TransportLocal
	case "streamable-http", "streamable_http", "http", "http-short-lived":
		return TransportHTTPShortLived
	case "sse", "http-persistent":
		return TransportHTTPPersistent
	default:
		return TransportUnknown
	}
}
