// Package memory implements a hybrid recall engine for conversational agents.
//
// Facts extracted from conversation are persisted in two complementary local
// indexes and retrieved when relevant to a new query, so the agent behaves as
// if it remembers the user and prior decisions across sessions.
//
// Architecture:
//   - LexicalStore: exact/full-text index with decay-based expiry
//     (SQLite FTS5 for the local SDK)
//   - VectorStore: semantic nearest-neighbor index (chromem-go, append-only)
//   - Embedder: text-to-vector conversion (remote API or local ONNX model)
//   - Manager: orchestrates recall at turn start and capture at turn end
//
// The two stores are deliberately independent: a fact is written to both at
// capture time, but no transaction spans them. Under partial failure they may
// disagree on membership; the near-duplicate check at write time is the sole
// consistency mechanism. The divergence window is accepted.
//
// Integration:
//   - turn start: Manager.OnTurnStart returns a delimited context block to
//     prepend to the prompt (or nothing)
//   - turn end: Manager.OnTurnEnd scans user utterances and captures the
//     memorable ones
//
// Both paths are best-effort: internal errors are logged and degrade to
// "no context" / "no capture", never surfacing to the host runtime.
package memory
