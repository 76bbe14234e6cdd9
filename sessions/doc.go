// Package sessions stores per-session state for tool code: an upstream token,
// the selected organization/workspace/project, free-form preferences and the
// client metadata a caller advertised through headers.
//
// Layers & Roles
//
//	Store    -> namespaced, JSON-encoded values keyed by session id
//	Backend  -> raw byte storage; either the host's own facility or FallbackBackend
//
// # Backend selection
//
// A Store is bound to exactly one Backend for its whole life. NewStore asks
// SelectBackend once: when the host value implements Backend it is used as-is
// (BackendNative) and the host is responsible for isolation and expiry;
// otherwise a process-local FallbackBackend is created (BackendFallback).
// Nothing is re-evaluated per call.
//
// # Namespaces
//
//	token       : token
//	context     : organization, workspace, project
//	preferences : free-form keys, stored together as one map
//	client      : region, agent, timestamp, preferences, raw
//
// Reads of absent values report found == false and never fail. Removes are
// idempotent. ClearNamespace drops every key of a namespace as a group.
//
// # Preferences
//
// Setting one preference rewrites the stored map. When the Backend implements
// Updater the merge is atomic. Otherwise two concurrent writers to the same
// session can lose one update (last writer wins); callers that need stronger
// guarantees should use a host backend with Updater support.
//
// Implementations
//
//	FallbackBackend : this package, process-local, single RWMutex
//	memoryhost      : in-memory host facility with sliding TTL
//	redishost       : Redis hashes with key expiry
package sessions
