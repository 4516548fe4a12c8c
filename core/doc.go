// Package core provides the foundational domain types and interfaces of
// SupportMesh. It defines the core abstractions for:
//
//   - Conversations (stateful discussion containers with message history)
//   - Holders (components that may own control of a turn)
//   - The handoff protocol (requests, results and state deltas exchanged
//     between holders)
//   - The pluggable conversation store contract
//
// The package intentionally keeps implementation concerns (persistence,
// flow resolution, concrete holders, transport) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
