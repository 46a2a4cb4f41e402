package extract

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
	"github.com/stencilhq/stencil/internal/ui"
)

const (
	clientMissingMessageConstant       = "source API client not configured"
	storeMissingMessageConstant        = "template store not configured"
	sourceUnreachableTemplateConstant  = "source instance is not reachable: %w"
	manifestWriteErrorTemplateConstant = "unable to write template manifest: %w"
	extractCompletedMessageConstant    = "Extraction completed"
	logFieldTemplateDirectoryConstant  = "template_directory"
	logFieldRunIdentifierConstant      = "run_id"

	stepNameCollectionsConstant  = "collections extraction"
	stepNameFieldsConstant       = "fields extraction"
	stepNameRelationsConstant    = "relations extraction"
	stepNameFoldersConstant      = "folders extraction"
	stepNameFilesConstant        = "file metadata extraction"
	stepNameRolesConstant        = "roles extraction"
	stepNamePermissionsConstant  = "permissions extraction"
	stepNamePoliciesConstant     = "policies extraction"
	stepNameAccessConstant       = "access extraction"
	stepNameUsersConstant        = "users extraction"
	stepNameSettingsConstant     = "settings extraction"
	stepNameTranslationsConstant = "translations extraction"
	stepNamePresetsConstant      = "presets extraction"
	stepNameFlowsConstant        = "flows extraction"
	stepNameOperationsConstant   = "operations extraction"
	stepNameDashboardsConstant   = "dashboards extraction"
	stepNamePanelsConstant       = "panels extraction"
	stepNameExtensionsConstant   = "extensions extraction"
	stepNameContentConstant      = "content extraction"
	stepNameAssetsConstant       = "asset download"
)

var (
	errClientMissing = errors.New(clientMissingMessageConstant)
	errStoreMissing  = errors.New(storeMissingMessageConstant)
)

// SourceAPI is the read surface the extractors require from an instance client.
type SourceAPI interface {
	Ping(executionContext context.Context) error
	ListCollections(executionContext context.Context) ([]schema.Collection, error)
	ListFields(executionContext context.Context) ([]schema.Field, error)
	ListRelations(executionContext context.Context) ([]schema.Relation, error)
	ListItems(executionContext context.Context, collectionName string, query directus.ItemQuery) ([]schema.Record, error)
	ReadSingletonItem(executionContext context.Context, collectionName string) (schema.Record, error)
	ListRecords(executionContext context.Context, endpointName string) ([]schema.Record, error)
	ReadSettings(executionContext context.Context) (schema.Record, error)
	ListExtensions(executionContext context.Context) ([]schema.Record, error)
	DownloadAsset(executionContext context.Context, fileIdentifier string) (io.ReadCloser, error)
}

// ServiceDependencies describes required collaborators for extraction.
type ServiceDependencies struct {
	Logger      *zap.Logger
	Client      SourceAPI
	Store       *template.Store
	Events      ui.StepEventObserver
	ToolVersion string
}

// Service orchestrates the extraction pipeline in dependency order.
type Service struct {
	logger      *zap.Logger
	client      SourceAPI
	store       *template.Store
	events      ui.StepEventObserver
	toolVersion string

	allCollections      []schema.Collection
	filteredCollections []schema.Collection
	extractedFields     []schema.Field
	fileRecords         []schema.Record
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Client == nil {
		return nil, errClientMissing
	}
	if dependencies.Store == nil {
		return nil, errStoreMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := dependencies.Events
	if events == nil {
		events = ui.NewConsoleStepEventLogger(logger)
	}

	return &Service{
		logger:      logger,
		client:      dependencies.Client,
		store:       dependencies.Store,
		events:      events,
		toolVersion: dependencies.ToolVersion,
	}, nil
}

// Execute runs every enabled extraction step in fixed dependency order.
// Step failures are fatal to the whole run; only per-collection content
// failures are isolated per collection.
func (service *Service) Execute(executionContext context.Context, flags capabilities.Flags) error {
	if readinessError := pipeline.WaitUntil(executionContext, pipeline.DefaultPollAttempts, pipeline.DefaultPollInterval, service.client.Ping); readinessError != nil {
		return fmt.Errorf(sourceUnreachableTemplateConstant, readinessError)
	}

	steps := []struct {
		name    string
		enabled bool
		run     func(context.Context, capabilities.Flags) error
	}{
		{stepNameCollectionsConstant, flags.Schema, service.extractCollections},
		{stepNameFieldsConstant, flags.Schema, service.extractFields},
		{stepNameRelationsConstant, flags.Schema, service.extractRelations},
		{stepNameFoldersConstant, flags.Files, service.extractFolders},
		{stepNameFilesConstant, flags.Files, service.extractFileMetadata},
		{stepNameRolesConstant, flags.Permissions, service.extractRoles},
		{stepNamePermissionsConstant, flags.Permissions, service.extractPermissions},
		{stepNamePoliciesConstant, flags.Permissions, service.extractPolicies},
		{stepNameAccessConstant, flags.Permissions, service.extractAccess},
		{stepNameUsersConstant, flags.Users, service.extractUsers},
		{stepNameSettingsConstant, flags.Settings, service.extractSettings},
		{stepNameTranslationsConstant, flags.Settings, service.extractTranslations},
		{stepNamePresetsConstant, flags.Settings, service.extractPresets},
		{stepNameFlowsConstant, flags.Flows, service.extractFlows},
		{stepNameOperationsConstant, flags.Flows, service.extractOperations},
		{stepNameDashboardsConstant, flags.Dashboards, service.extractDashboards},
		{stepNamePanelsConstant, flags.Dashboards, service.extractPanels},
		{stepNameExtensionsConstant, flags.Extensions, service.extractExtensions},
		{stepNameContentConstant, flags.Content, service.extractContent},
		{stepNameAssetsConstant, flags.Files, service.downloadAssets},
	}

	for _, step := range steps {
		if !step.enabled {
			service.events.StepSkipped(step.name)
			continue
		}
		service.events.StepStarted(step.name)
		if stepError := step.run(executionContext, flags); stepError != nil {
			service.events.StepFailed(step.name, stepError)
			return stepError
		}
		service.events.StepCompleted(step.name)
	}

	return service.writeManifest()
}

func (service *Service) writeManifest() error {
	manifest := template.NewManifest(service.toolVersion)
	if writeError := service.store.WriteBlob(template.BlobManifest, manifest); writeError != nil {
		return fmt.Errorf(manifestWriteErrorTemplateConstant, writeError)
	}

	service.logger.Info(
		extractCompletedMessageConstant,
		zap.String(logFieldTemplateDirectoryConstant, service.store.RootDirectory()),
		zap.String(logFieldRunIdentifierConstant, manifest.RunIdentifier),
	)
	return nil
}

// resolveCollections returns the filtered collection set, fetching it from the
// source when the schema step did not run in this invocation.
func (service *Service) resolveCollections(executionContext context.Context, flags capabilities.Flags) ([]schema.Collection, error) {
	if service.filteredCollections != nil {
		return service.filteredCollections, nil
	}

	collections, listError := service.client.ListCollections(executionContext)
	if listError != nil {
		return nil, listError
	}
	service.allCollections = collections
	service.filteredCollections = schema.FilterCollections(collections, flags.ExcludeExtensionCollections)
	return service.filteredCollections, nil
}

// resolveFields returns the extracted field set, fetching it from the source
// when the schema step did not run in this invocation.
func (service *Service) resolveFields(executionContext context.Context, flags capabilities.Flags) ([]schema.Field, error) {
	if service.extractedFields != nil {
		return service.extractedFields, nil
	}

	collections, collectionsError := service.resolveCollections(executionContext, flags)
	if collectionsError != nil {
		return nil, collectionsError
	}

	fields, listError := service.client.ListFields(executionContext)
	if listError != nil {
		return nil, listError
	}
	service.extractedFields = filterFields(fields, schema.CollectionNames(collections))
	return service.extractedFields, nil
}
