package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stencilhq/stencil/internal/utils"
)

const (
	loaderEnvironmentPrefixConstant = "TESTSTENCIL"
	loaderLogLevelKeyConstant       = "common.log_level"
	loaderConfigFileNameConstant    = "config.yaml"
	loaderConfigBodyTemplate        = "common:\n  log_level: %s\n"
)

type loaderFixture struct {
	Common struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"common"`
}

func writeLogLevelConfig(testInstance *testing.T, directoryPath string, logLevel string) string {
	testInstance.Helper()

	configurationFilePath := filepath.Join(directoryPath, loaderConfigFileNameConstant)
	configurationBody := fmt.Sprintf(loaderConfigBodyTemplate, logLevel)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationBody), 0o600))
	return configurationFilePath
}

func newLogLevelLoader(searchPaths ...string) *utils.ConfigurationLoader {
	return utils.NewConfigurationLoader("config", "yaml", loaderEnvironmentPrefixConstant, searchPaths)
}

func TestConfigurationLoaderLayersSources(testInstance *testing.T) {
	testCases := []struct {
		name             string
		embeddedLogLevel string
		fileLogLevel     string
		envLogLevel      string
		expectedLogLevel string
	}{
		{
			name:             "embedded_defaults_apply",
			embeddedLogLevel: "debug",
			expectedLogLevel: "debug",
		},
		{
			name:             "programmatic_defaults_apply",
			embeddedLogLevel: "info",
			expectedLogLevel: "info",
		},
		{
			name:             "file_beats_defaults",
			embeddedLogLevel: "info",
			fileLogLevel:     "debug",
			expectedLogLevel: "debug",
		},
		{
			name:             "environment_beats_file",
			embeddedLogLevel: "info",
			fileLogLevel:     "warn",
			envLogLevel:      "error",
			expectedLogLevel: "error",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			tempDirectory := subtestInstance.TempDir()

			configurationFilePath := ""
			if len(testCase.fileLogLevel) > 0 {
				configurationFilePath = writeLogLevelConfig(subtestInstance, tempDirectory, testCase.fileLogLevel)
			}
			if len(testCase.envLogLevel) > 0 {
				subtestInstance.Setenv(loaderEnvironmentPrefixConstant+"_COMMON_LOG_LEVEL", testCase.envLogLevel)
			}

			configurationLoader := newLogLevelLoader(tempDirectory)
			configurationLoader.SetEmbeddedConfiguration(
				[]byte(fmt.Sprintf(loaderConfigBodyTemplate, testCase.embeddedLogLevel)),
				"yaml",
			)

			defaultValues := map[string]any{loaderLogLevelKeyConstant: "info"}

			var loaded loaderFixture
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loaded)
			require.NoError(subtestInstance, loadError)
			require.Equal(subtestInstance, testCase.expectedLogLevel, loaded.Common.LogLevel)
			require.Equal(subtestInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderSearchesConfiguredPaths(testInstance *testing.T) {
	testCases := []struct {
		name              string
		useHomeConfigPath bool
	}{
		{name: "working_directory", useHomeConfigPath: false},
		{name: "user_configuration_directory", useHomeConfigPath: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			workingDirectoryPath := subtestInstance.TempDir()
			homeDirectoryPath := subtestInstance.TempDir()

			subtestInstance.Setenv("HOME", homeDirectoryPath)
			subtestInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, "config"))

			userConfigBasePath, userConfigError := os.UserConfigDir()
			require.NoError(subtestInstance, userConfigError)

			userConfigurationDirectoryPath := filepath.Join(userConfigBasePath, ".stencil")
			require.NoError(subtestInstance, os.MkdirAll(userConfigurationDirectoryPath, 0o755))

			selectedDirectoryPath := workingDirectoryPath
			if testCase.useHomeConfigPath {
				selectedDirectoryPath = userConfigurationDirectoryPath
			}
			expectedConfigurationFilePath := writeLogLevelConfig(subtestInstance, selectedDirectoryPath, "debug")

			configurationLoader := newLogLevelLoader(workingDirectoryPath, userConfigurationDirectoryPath)
			defaultValues := map[string]any{loaderLogLevelKeyConstant: "info"}

			var loaded loaderFixture
			metadata, loadError := configurationLoader.LoadConfiguration("", defaultValues, &loaded)
			require.NoError(subtestInstance, loadError)
			require.Equal(subtestInstance, "debug", loaded.Common.LogLevel)
			require.Equal(subtestInstance, expectedConfigurationFilePath, metadata.ConfigFileUsed)
		})
	}
}
