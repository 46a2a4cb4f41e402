// Package pipeline provides the shared batching, fan-out, pagination, and
// polling primitives used by the extract and apply orchestrators.
package pipeline
