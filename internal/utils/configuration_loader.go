package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	environmentKeyDotConstant        = "."
	environmentKeyUnderscoreConstant = "_"
	configurationReadFailedTemplate  = "failed to read configuration: %w"
	configurationParseFailedTemplate = "failed to parse configuration: %w"
	embeddedDefaultsMergeTemplate    = "failed to merge embedded configuration: %w"
)

// ConfigurationLoader resolves the effective configuration by layering
// embedded defaults, configuration files found on the search paths, and
// environment variables carrying the configured prefix. Later layers win.
type ConfigurationLoader struct {
	fileName          string
	fileType          string
	environmentPrefix string
	searchPaths       []string
	embeddedDefaults  []byte
	embeddedType      string
}

// LoadedConfiguration reports where the effective configuration came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader builds a loader that looks for configurationName
// files of configurationType on searchPaths and honors environment variables
// prefixed with environmentPrefix.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		fileName:          configurationName,
		fileType:          configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string(nil), searchPaths...),
	}
}

// SetEmbeddedConfiguration registers configuration data compiled into the
// binary. It is merged before any other source so files and environment
// variables override it.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}
	loader.embeddedDefaults = append([]byte(nil), configurationData...)
	loader.embeddedType = strings.TrimSpace(configurationType)
}

// LoadConfiguration fills targetConfiguration from every configured source and
// reports the configuration file that was actually read, if one was.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.fileName)
	viperInstance.SetConfigType(loader.fileType)

	if mergeError := loader.mergeEmbeddedDefaults(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(environmentKeyDotConstant, environmentKeyUnderscoreConstant))
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadFailedTemplate, readError)
		}
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationParseFailedTemplate, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedDefaults(viperInstance *viper.Viper) error {
	if len(loader.embeddedDefaults) == 0 {
		return nil
	}

	if len(loader.embeddedType) > 0 {
		viperInstance.SetConfigType(loader.embeddedType)
	}
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedDefaults)); mergeError != nil {
		return fmt.Errorf(embeddedDefaultsMergeTemplate, mergeError)
	}
	viperInstance.SetConfigType(loader.fileType)
	return nil
}
