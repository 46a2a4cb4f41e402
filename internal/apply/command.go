package apply

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/template"
	pathutils "github.com/stencilhq/stencil/internal/utils/path"
)

const (
	commandUseConstant              = "apply"
	commandShortDescriptionConstant = "Apply a template to a target instance"
	commandLongDescriptionConstant  = "apply upserts the schema, content, permissions, users, settings, flows, dashboards, extensions, and files of a template directory into a target instance. Existing records are never modified or deleted; re-running apply is safe."

	templateDirectoryFlagNameConstant  = "dir"
	templateDirectoryFlagUsageConstant = "Template directory to apply."
	instanceURLFlagNameConstant        = "url"
	instanceURLFlagUsageConstant       = "Base URL of the target instance."
	accessTokenFlagNameConstant        = "token"
	accessTokenFlagUsageConstant       = "Static access token for the target instance."

	templateDirectoryFieldNameConstant = "template_directory"
	instanceURLFieldNameConstant       = "instance_url"
	accessTokenFieldNameConstant       = "access_token"
	requiredValueMessageConstant       = "value required"

	storeCreationErrorTemplateConstant   = "unable to open template directory: %w"
	clientCreationErrorTemplateConstant  = "unable to construct instance client: %w"
	serviceCreationErrorTemplateConstant = "unable to construct apply service: %w"
	applyFailedErrorTemplateConstant     = "apply failed: %w"
)

// InvalidInputError describes apply option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// PipelineExecutor runs the apply pipeline.
type PipelineExecutor interface {
	Execute(executionContext context.Context, flags capabilities.Flags) error
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ClientProvider constructs a target API client for an instance.
type ClientProvider func(instanceURL string, accessToken string, logger *zap.Logger) (TargetAPI, error)

// ServiceProvider constructs an apply executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (PipelineExecutor, error)

// CommandBuilder assembles the apply Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ClientProvider        ClientProvider
	ServiceProvider       ServiceProvider
	ConfigurationProvider func() CommandConfiguration

	templateDirectoryFlagValue string
	instanceURLFlagValue       string
	accessTokenFlagValue       string
	capabilityFlagValues       capabilities.Flags
}

type commandOptions struct {
	templateDirectory string
	instanceURL       string
	accessToken       string
	capabilityFlags   capabilities.Flags
}

// Build constructs the apply command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runApply,
	}

	command.Flags().StringVar(&builder.templateDirectoryFlagValue, templateDirectoryFlagNameConstant, "", templateDirectoryFlagUsageConstant)
	command.Flags().StringVar(&builder.instanceURLFlagValue, instanceURLFlagNameConstant, "", instanceURLFlagUsageConstant)
	command.Flags().StringVar(&builder.accessTokenFlagValue, accessTokenFlagNameConstant, "", accessTokenFlagUsageConstant)
	capabilities.RegisterFlags(command.Flags(), &builder.capabilityFlagValues)

	return command, nil
}

func (builder *CommandBuilder) runApply(command *cobra.Command, _ []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	store, storeError := template.NewStore(options.templateDirectory)
	if storeError != nil {
		return fmt.Errorf(storeCreationErrorTemplateConstant, storeError)
	}

	client, clientError := builder.resolveClient(options, logger)
	if clientError != nil {
		return fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger: logger,
		Client: client,
		Store:  store,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	if executionError := service.Execute(command.Context(), options.capabilityFlags); executionError != nil {
		return fmt.Errorf(applyFailedErrorTemplateConstant, executionError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	templateDirectory := configuration.TemplateDirectory
	if command.Flags().Changed(templateDirectoryFlagNameConstant) {
		templateDirectory = strings.TrimSpace(builder.templateDirectoryFlagValue)
	}
	templateDirectory = pathutils.NewHomeExpander().Expand(templateDirectory)
	instanceURL := configuration.InstanceURL
	if command.Flags().Changed(instanceURLFlagNameConstant) {
		instanceURL = strings.TrimSpace(builder.instanceURLFlagValue)
	}
	accessToken := configuration.AccessToken
	if command.Flags().Changed(accessTokenFlagNameConstant) {
		accessToken = strings.TrimSpace(builder.accessTokenFlagValue)
	}

	if len(templateDirectory) == 0 {
		return commandOptions{}, InvalidInputError{FieldName: templateDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(instanceURL) == 0 {
		return commandOptions{}, InvalidInputError{FieldName: instanceURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(accessToken) == 0 {
		return commandOptions{}, InvalidInputError{FieldName: accessTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	capabilityFlags := capabilities.ApplyChangedFlags(command.Flags(), builder.capabilityFlagValues, configuration.Capabilities)

	return commandOptions{
		templateDirectory: templateDirectory,
		instanceURL:       instanceURL,
		accessToken:       accessToken,
		capabilityFlags:   capabilityFlags,
	}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveClient(options commandOptions, logger *zap.Logger) (TargetAPI, error) {
	if builder.ClientProvider != nil {
		return builder.ClientProvider(options.instanceURL, options.accessToken, logger)
	}
	return directus.NewClient(options.instanceURL, options.accessToken, logger)
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (PipelineExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
