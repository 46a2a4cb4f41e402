package cli

import (
	"bytes"
	_ "embed"
)

//go:embed default_config.yaml
var defaultConfigurationYAML []byte

// EmbeddedDefaultConfiguration returns a copy of the configuration compiled
// into the binary together with its format identifier. The CLI merges it
// before any user-provided configuration so every toggle has a value even
// without a config file.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationYAML), configurationTypeConstant
}
