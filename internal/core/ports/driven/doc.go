// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
//
// These are the capabilities the core consumes but does not implement:
// the retrieval-and-answer engine, the text-completion service used for
// delegated query rewriting, configuration, and run-history persistence.
package driven
