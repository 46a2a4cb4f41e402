package utils

import "context"

type contextValueKey int

const configurationFilePathKey contextValueKey = iota

// CommandContextAccessor reads and writes the values the CLI threads through
// command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor returns a ready accessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath stores the resolved configuration file path on the context.
func (CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathKey, configurationFilePath)
}

// ConfigurationFilePath reports the configuration file path stored on the context, if any.
func (CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	storedPath, pathPresent := executionContext.Value(configurationFilePathKey).(string)
	return storedPath, pathPresent
}
