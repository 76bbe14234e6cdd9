// Package memoryhost provides an in-memory host storage facility implementing
// sessions.Backend. It plays the role a hosting framework's own per-session
// storage would: the host, not the session layer, enforces isolation and
// expiry. All state is ephemeral and discarded on process exit.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Expiry            : sliding per-session TTL, refreshed on every write
//	Eviction          : lazy on access, plus explicit Sweep
//	Concurrency       : safe (single RWMutex)
//
// Example:
//
//	host := memoryhost.New(memoryhost.WithTTL(30 * time.Minute))
//	store := sessions.NewStore(host) // store.Kind() == sessions.BackendNative
//
// For multi-node deployments prefer a durable host like redishost.
package memoryhost
