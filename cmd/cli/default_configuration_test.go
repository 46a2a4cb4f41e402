package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type embeddedConfigurationDocument struct {
	Common struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"common"`
	Tools struct {
		Extract embeddedToolDocument `yaml:"extract"`
		Apply   embeddedToolDocument `yaml:"apply"`
	} `yaml:"tools"`
}

type embeddedToolDocument struct {
	Capabilities map[string]bool `yaml:"capabilities"`
}

func TestEmbeddedDefaultConfigurationParsesAsYAML(testInstance *testing.T) {
	testInstance.Parallel()

	configurationData, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	require.NotEmpty(testInstance, configurationData)

	var document embeddedConfigurationDocument
	require.NoError(testInstance, yaml.Unmarshal(configurationData, &document))

	require.Equal(testInstance, "info", document.Common.LogLevel)
	require.Equal(testInstance, "structured", document.Common.LogFormat)

	for _, toolDocument := range []embeddedToolDocument{document.Tools.Extract, document.Tools.Apply} {
		require.True(testInstance, toolDocument.Capabilities["schema"])
		require.True(testInstance, toolDocument.Capabilities["content"])
		require.False(testInstance, toolDocument.Capabilities["exclude_extension_collections"])
	}
}
