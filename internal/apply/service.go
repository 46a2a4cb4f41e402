package apply

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
	clientMissingMessageConstant       = "target API client not configured"
	storeMissingMessageConstant        = "template store not configured"
	targetUnreachableTemplateConstant  = "target instance is not reachable: %w"
	unsupportedTemplateMessageConstant = "template is missing the collections, fields, or relations blob; it was likely produced by an older, unsupported template format"
	applyCompletedMessageConstant      = "Template applied"
	manifestFoundMessageConstant       = "Applying template"
	logFieldTemplateDirectoryConstant  = "template_directory"
	logFieldRunIdentifierConstant      = "run_id"
	logFieldGeneratedAtConstant        = "generated_at"

	stepNameCollectionsConstant  = "collections load"
	stepNameFieldsConstant       = "fields load"
	stepNameRelationsConstant    = "relations load"
	stepNameRolesConstant        = "roles load"
	stepNamePoliciesConstant     = "policies load"
	stepNamePermissionsConstant  = "permissions load"
	stepNameUsersConstant        = "users load"
	stepNameAccessConstant       = "access load"
	stepNameFoldersConstant      = "folders load"
	stepNameFilesConstant        = "files load"
	stepNameContentConstant      = "content load"
	stepNameRequiredConstant     = "required constraints restore"
	stepNameDashboardsConstant   = "dashboards load"
	stepNamePanelsConstant       = "panels load"
	stepNameFlowsConstant        = "flows load"
	stepNameOperationsConstant   = "operations load"
	stepNameSettingsConstant     = "settings load"
	stepNameTranslationsConstant = "translations load"
	stepNamePresetsConstant      = "presets load"
	stepNameExtensionsConstant   = "extensions load"
)

var (
	errClientMissing = errors.New(clientMissingMessageConstant)
	errStoreMissing  = errors.New(storeMissingMessageConstant)

	// ErrUnsupportedTemplate distinguishes an incompatible template layout
	// from a generic read failure.
	ErrUnsupportedTemplate = errors.New(unsupportedTemplateMessageConstant)
)

// TargetAPI is the write surface the loaders require from an instance client.
type TargetAPI interface {
	Ping(executionContext context.Context) error
	ListCollections(executionContext context.Context) ([]schema.Collection, error)
	CreateCollection(executionContext context.Context, collection schema.Collection) error
	ListFields(executionContext context.Context) ([]schema.Field, error)
	CreateField(executionContext context.Context, field schema.Field) error
	UpdateField(executionContext context.Context, field schema.Field) error
	ListRelations(executionContext context.Context) ([]schema.Relation, error)
	CreateRelation(executionContext context.Context, relation schema.Relation) error
	ListItems(executionContext context.Context, collectionName string, query directus.ItemQuery) ([]schema.Record, error)
	CreateItems(executionContext context.Context, collectionName string, records []schema.Record) error
	UpdateItems(executionContext context.Context, collectionName string, records []schema.Record) error
	UpdateSingleton(executionContext context.Context, collectionName string, record schema.Record) error
	ListRecords(executionContext context.Context, endpointName string) ([]schema.Record, error)
	CreateRecord(executionContext context.Context, endpointName string, record schema.Record) error
	UpdateSettings(executionContext context.Context, settings schema.Record) error
	ListExtensions(executionContext context.Context) ([]schema.Record, error)
	UpdateExtension(executionContext context.Context, extensionIdentifier string, meta schema.Record) error
	UploadFile(executionContext context.Context, metadata schema.Record, contents io.Reader) error
}

// ServiceDependencies describes required collaborators for applying a template.
type ServiceDependencies struct {
	Logger *zap.Logger
	Client TargetAPI
	Store  *template.Store
	Events ui.StepEventObserver
}

// Service orchestrates the apply pipeline in fixed dependency order, gated by
// the template compatibility check.
type Service struct {
	logger *zap.Logger
	client TargetAPI
	store  *template.Store
	events ui.StepEventObserver

	templateCollections    []schema.Collection
	templateFields         []schema.Field
	deferredRequiredFields []schema.Field
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
		logger: logger,
		client: dependencies.Client,
		store:  dependencies.Store,
		events: events,
	}, nil
}

// Execute upserts every enabled entity family into the target instance. The
// pipeline is additive and idempotent: nothing is ever deleted, and a re-run
// skips everything the first run created.
func (service *Service) Execute(executionContext context.Context, flags capabilities.Flags) error {
	if !service.store.HasBlobs(template.BlobCollections, template.BlobFields, template.BlobRelations) {
		return ErrUnsupportedTemplate
	}

	if readinessError := pipeline.WaitUntil(executionContext, pipeline.DefaultPollAttempts, pipeline.DefaultPollInterval, service.client.Ping); readinessError != nil {
		return fmt.Errorf(targetUnreachableTemplateConstant, readinessError)
	}

	service.logManifest()

	steps := []struct {
		name    string
		enabled bool
		run     func(context.Context, capabilities.Flags) error
	}{
		{stepNameCollectionsConstant, flags.Schema, service.loadCollections},
		{stepNameFieldsConstant, flags.Schema, service.loadFields},
		{stepNameRelationsConstant, flags.Schema, service.loadRelations},
		{stepNameRolesConstant, flags.Permissions, service.loadRoles},
		{stepNamePoliciesConstant, flags.Permissions, service.loadPolicies},
		{stepNamePermissionsConstant, flags.Permissions, service.loadPermissions},
		{stepNameUsersConstant, flags.Users, service.loadUsers},
		{stepNameAccessConstant, flags.Permissions, service.loadAccess},
		{stepNameFoldersConstant, flags.Files, service.loadFolders},
		{stepNameFilesConstant, flags.Files, service.loadFiles},
		{stepNameContentConstant, flags.Content, service.loadContent},
		{stepNameRequiredConstant, flags.Schema, service.restoreRequiredFields},
		{stepNameDashboardsConstant, flags.Dashboards, service.loadDashboards},
		{stepNamePanelsConstant, flags.Dashboards, service.loadPanels},
		{stepNameFlowsConstant, flags.Flows, service.loadFlows},
		{stepNameOperationsConstant, flags.Flows, service.loadOperations},
		{stepNameSettingsConstant, flags.Settings, service.loadSettings},
		{stepNameTranslationsConstant, flags.Settings, service.loadTranslations},
		{stepNamePresetsConstant, flags.Settings, service.loadPresets},
		{stepNameExtensionsConstant, flags.Extensions, service.loadExtensions},
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

	service.logger.Info(
		applyCompletedMessageConstant,
		zap.String(logFieldTemplateDirectoryConstant, service.store.RootDirectory()),
	)
	return nil
}

func (service *Service) logManifest() {
	var manifest template.Manifest
	present, readError := service.store.ReadBlobAllowMissing(template.BlobManifest, &manifest)
	if readError != nil || !present {
		return
	}
	service.logger.Info(
		manifestFoundMessageConstant,
		zap.String(logFieldRunIdentifierConstant, manifest.RunIdentifier),
		zap.String(logFieldGeneratedAtConstant, manifest.GeneratedAt),
	)
}

// resolveTemplateCollections loads and caches the collections blob.
func (service *Service) resolveTemplateCollections() ([]schema.Collection, error) {
	if service.templateCollections != nil {
		return service.templateCollections, nil
	}
	var collections []schema.Collection
	if readError := service.store.ReadBlob(template.BlobCollections, &collections); readError != nil {
		return nil, readError
	}
	service.templateCollections = collections
	return collections, nil
}

// resolveTemplateFields loads and caches the fields blob.
func (service *Service) resolveTemplateFields() ([]schema.Field, error) {
	if service.templateFields != nil {
		return service.templateFields, nil
	}
	var fields []schema.Field
	if readError := service.store.ReadBlob(template.BlobFields, &fields); readError != nil {
		return nil, readError
	}
	service.templateFields = fields
	return fields, nil
}
