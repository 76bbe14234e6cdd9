// Package sessionstate is the typed surface tool handlers use to read and
// write session state. Every method takes the request context, resolves the
// session id from it (see package identity) and then touches only that
// session's data.
//
// Example:
//
//	svc := sessionstate.New(sessionstate.WithLogger(logger))
//	defer svc.Close()
//
//	ctx = hostctx.WithHost(ctx, hostctx.FromRequest(r, hostctx.TransportHTTPShortLived))
//	if err := svc.SetToken(ctx, token); err != nil {
//		// err may be an *identity.SessionRequiredError naming the header to send
//	}
//
// Introspection never returns the token itself: SessionInfo reports only
// whether one is set and TokenStatus returns a masked preview.
package sessionstate
