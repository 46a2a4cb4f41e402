package apply_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/apply"
	"github.com/stencilhq/stencil/internal/capabilities"
)

type recordedExecution struct {
	executed bool
	flags    capabilities.Flags
}

type stubExecutor struct {
	execution *recordedExecution
}

func (executor stubExecutor) Execute(_ context.Context, flags capabilities.Flags) error {
	executor.execution.executed = true
	executor.execution.flags = flags
	return nil
}

func buildApplyCommand(testInstance *testing.T, configuration apply.CommandConfiguration, execution *recordedExecution) *apply.CommandBuilder {
	testInstance.Helper()
	return &apply.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		ClientProvider: func(instanceURL string, accessToken string, logger *zap.Logger) (apply.TargetAPI, error) {
			return newTargetStub(), nil
		},
		ServiceProvider: func(dependencies apply.ServiceDependencies) (apply.PipelineExecutor, error) {
			return stubExecutor{execution: execution}, nil
		},
		ConfigurationProvider: func() apply.CommandConfiguration { return configuration },
	}
}

func TestApplyCommandValidatesRequiredOptions(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name              string
		arguments         []string
		expectedFieldName string
	}{
		{
			name:              "missing_directory",
			arguments:         []string{"--url", "http://localhost:8055", "--token", "secret"},
			expectedFieldName: "template_directory",
		},
		{
			name:              "missing_url",
			arguments:         []string{"--dir", "template", "--token", "secret"},
			expectedFieldName: "instance_url",
		},
		{
			name:              "missing_token",
			arguments:         []string{"--dir", "template", "--url", "http://localhost:8055"},
			expectedFieldName: "access_token",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			subtestInstance.Parallel()

			execution := &recordedExecution{}
			builder := buildApplyCommand(subtestInstance, apply.CommandConfiguration{}, execution)

			command, buildError := builder.Build()
			require.NoError(subtestInstance, buildError)
			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)

			executionError := command.Execute()
			require.Error(subtestInstance, executionError)

			var inputError apply.InvalidInputError
			require.ErrorAs(subtestInstance, executionError, &inputError)
			require.Equal(subtestInstance, testCase.expectedFieldName, inputError.FieldName)
			require.False(subtestInstance, execution.executed)
		})
	}
}

func TestApplyCommandResolvesCapabilitiesFromConfigurationAndFlags(testInstance *testing.T) {
	testInstance.Parallel()

	configuration := apply.CommandConfiguration{
		TemplateDirectory: testInstance.TempDir(),
		InstanceURL:       "http://localhost:8055",
		AccessToken:       "secret",
		Capabilities:      capabilities.Defaults(),
	}
	configuration.Capabilities.Extensions = false

	execution := &recordedExecution{}
	builder := buildApplyCommand(testInstance, configuration, execution)

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{"--files=no"})

	require.NoError(testInstance, command.Execute())

	require.True(testInstance, execution.executed)
	require.False(testInstance, execution.flags.Files)
	require.False(testInstance, execution.flags.Extensions)
	require.True(testInstance, execution.flags.Schema)
}
