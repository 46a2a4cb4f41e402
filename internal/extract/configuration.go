package extract

import (
	"strings"

	"github.com/stencilhq/stencil/internal/capabilities"
)

// CommandConfiguration captures persisted configuration for the extract command.
type CommandConfiguration struct {
	TemplateDirectory string             `mapstructure:"dir"`
	InstanceURL       string             `mapstructure:"url"`
	AccessToken       string             `mapstructure:"token"`
	Capabilities      capabilities.Flags `mapstructure:"capabilities"`
}

// DefaultCommandConfiguration returns baseline configuration values for extraction.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Capabilities: capabilities.Defaults(),
	}
}

// Sanitize trims configured values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.TemplateDirectory = strings.TrimSpace(configuration.TemplateDirectory)
	sanitized.InstanceURL = strings.TrimSpace(configuration.InstanceURL)
	sanitized.AccessToken = strings.TrimSpace(configuration.AccessToken)
	return sanitized
}
