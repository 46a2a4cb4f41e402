// Package ui renders pipeline step lifecycle events as human-readable console
// messages layered over structured logging.
package ui
