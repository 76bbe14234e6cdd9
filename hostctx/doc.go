// Package hostctx isolates the session layer from the request context object a
// hosting framework hands to tool code.
//
// A host attaches whatever it has to a context.Context with WithHost. The
// value is probed for small optional capability interfaces:
//
//	HeaderCarrier    : inbound request headers (ordered)
//	TransportCarrier : which kind of transport produced the request
//	IdentityCarrier  : a session identity the host already established
//
// None of them is required. HeadersOf, TransportOf and IdentityOf return empty
// headers, TransportUnknown and no identity respectively when the context has
// no host or the host does not implement the capability. Hosts never need to
// expose their internals for the session layer to work.
//
// Example (net/http):
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		ctx := hostctx.WithHost(r.Context(), hostctx.FromRequest(r, hostctx.TransportHTTPShortLived))
//		id, err := resolver.Resolve(ctx)
//		...
//	}
package hostctx
