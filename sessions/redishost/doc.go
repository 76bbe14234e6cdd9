// Package redishost implements sessions.Backend on Redis so that a host can
// offer per-session storage that survives restarts and is shared by every
// replica behind a load balancer. The session layer treats it like any other
// host-native facility: isolation and expiry are enforced here.
//
// Design Notes
//   - Layout: one hash per session at <prefix>data:<session id>, one field per key
//   - Expiry: the hash carries a sliding TTL, refreshed on every write
//   - Atomic updates: WATCH + MULTI/EXEC with bounded optimistic retries
//   - Connect: the initial PING is retried with exponential backoff
//
// Example:
//
//	host, err := redishost.New(ctx, "localhost:6379", redishost.WithKeyPrefix("tfc:"))
//	if err != nil { return err }
//	defer host.Close()
//	store := sessions.NewStore(host)
//
// Use memoryhost or the built-in fallback for single-process deployments.
package redishost
