// Package core provides the foundational conversation types and execution
// contexts used by voicemesh. It defines the core abstractions for:
//
//   - Items (chat history entries: messages, function calls and their
//     outputs, each with a stable identifier)
//   - ChatContext (the ordered, deduplicated history a role accumulates)
//   - RunContext / ToolContext (scoped execution & tool sandboxing, carrying
//     the session's shared user-data record into tool implementations)
//
// The package intentionally keeps implementation concerns (speech pipelines,
// model adapters, role routing) out of scope, exposing small types so the
// higher layers stay decoupled. All exported identifiers include concise
// documentation to aid discoverability and external consumption.
package core
