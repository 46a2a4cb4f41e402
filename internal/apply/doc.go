// Package apply upserts a previously extracted template into a target
// instance, resolving references and skipping records that already exist.
package apply
