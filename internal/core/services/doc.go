// Package services implements the core use cases of Quill.
//
// This is the control layer in front of the retrieval-and-answer engine:
// the event bus, the run orchestrator, the query-rewrite service, the
// evidence curation pipeline and the session export views. Services
// depend only on domain types and port interfaces - adapters are
// injected, and optional ones may be nil, in which case the affected
// feature degrades gracefully instead of failing.
package services
