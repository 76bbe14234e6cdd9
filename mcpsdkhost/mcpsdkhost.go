// Package mcpsdkhost exposes tool requests of the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk) to the session layer.
//
// The SDK hands tool handlers a *mcp.CallToolRequest. Its HTTP headers (when
// the transport has any) and its server session id become the HeaderCarrier
// and IdentityCarrier capabilities of package hostctx:
//
//	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, in Args) (*mcp.CallToolResult, Out, error) {
//		ctx = mcpsdkhost.WithRequest(ctx, req, hostctx.TransportHTTPShortLived)
//		tok, err := svc.ActiveToken(ctx)
//		...
//	})
package mcpsdkhost

import (
	"context"

	"github.com/ggoodman/mcp-session-go/hostctx"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Request adapts a go-sdk tool request.
type Request struct {
	req  *mcp.CallToolRequest
	kind hostctx.TransportKind
}

// New wraps req. kind is the transport the server was started with; the SDK
// does not report it per request.
func New(req *mcp.CallToolRequest, kind hostctx.TransportKind) *Request {
	return &Request{req: req, kind: kind}
}

// WithRequest attaches req to ctx as the host value.
func WithRequest(ctx context.Context, req *mcp.CallToolRequest, kind hostctx.TransportKind) context.Context {
	return hostctx.WithHost(ctx, New(req, kind))
}

func (r *Request) Headers() hostctx.Headers {
	if r.req == nil || r.req.Extra == nil {
		return nil
	}
	return hostctx.FromHTTP(r.req.Extra.Header)
}

func (r *Request) TransportKind() hostctx.TransportKind {
	if r.kind == "" {
		return hostctx.TransportUnknown
	}
	return r.kind
}

// Identity reports the SDK session id. Stateless and stdio sessions have
// none.
func (r *Request) Identity() (string, bool) {
	if r.req == nil || r.req.Session == nil {
		return "", false
	}
	id := r.req.Session.ID()
	return id, id != ""
}

var (
	_ hostctx.HeaderCarrier    = (*Request)(nil)
	_ hostctx.TransportCarrier = (*Request)(nil)
	_ hostctx.IdentityCarrier  = (*Request)(nil)
)
