// Package extract reads schema, content, permissions, settings, flows,
// dashboards, and file metadata from a source instance and persists them as a
// portable template.
package extract
