package template

import (
	"time"

	"github.com/google/uuid"
)

// Manifest records the provenance of an extract run inside the template root.
type Manifest struct {
	RunIdentifier string `json:"run_id"`
	GeneratedAt   string `json:"generated_at"`
	ToolVersion   string `json:"tool_version,omitempty"`
}

// NewManifest builds a manifest for a fresh extract run.
func NewManifest(toolVersion string) Manifest {
	return Manifest{
		RunIdentifier: uuid.NewString(),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		ToolVersion:   toolVersion,
	}
}
