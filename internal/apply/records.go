package apply

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
)

// System endpoints behind the generic record surface.
const (
	endpointRolesConstant        = "roles"
	endpointPermissionsConstant  = "permissions"
	endpointPoliciesConstant     = "policies"
	endpointAccessConstant       = "access"
	endpointUsersConstant        = "users"
	endpointFlowsConstant        = "flows"
	endpointOperationsConstant   = "operations"
	endpointDashboardsConstant   = "dashboards"
	endpointPanelsConstant       = "panels"
	endpointTranslationsConstant = "translations"
	endpointPresetsConstant      = "presets"
)

const (
	recordIdentifierFieldNameConstant = "id"
	userEmailFieldNameConstant        = "email"
	fieldIndexKeySeparatorConstant    = "/"

	operationCreateRecordConstant    = "create-record"
	operationUpdateSettingsConstant  = "update-settings"
	operationUpdateExtensionConstant = "update-extension"

	blobAbsentMessageConstant          = "Template blob absent, nothing to load"
	settingsUpdatedMessageConstant     = "Settings updated"
	extensionToggledMessageConstant    = "Extension enablement reconciled"
	extensionNotInstalledMessage       = "Extension from template is not installed on the target"
	extensionMetaKeyConstant           = "meta"
	extensionMetaEnabledKeyConstant    = "enabled"
	extensionIdentifierKeyConstant     = "id"
	extensionNameKeyConstant           = "name"
	logFieldEndpointConstant           = "endpoint"
	logFieldBlobConstant               = "blob"
	logFieldExtensionConstant          = "extension"
	logFieldExtensionEnabledConstant   = "enabled"
	recordsCreatedMessageConstant      = "Records created"
	logFieldCreatedRecordCountConstant = "created"
)

func fieldIndexKey(collectionName string, fieldName string) string {
	return strings.Join([]string{collectionName, fieldName}, fieldIndexKeySeparatorConstant)
}

// upsertRecordFamily diffs one system record family by identifier and creates
// whatever the target is missing. Existing records are never modified or
// deleted. A missing blob is tolerated so older templates stay loadable.
func (service *Service) upsertRecordFamily(executionContext context.Context, endpointName string, blobName string) error {
	var records []schema.Record
	present, readError := service.store.ReadBlobAllowMissing(blobName, &records)
	if readError != nil {
		return readError
	}
	if !present {
		service.logger.Debug(
			blobAbsentMessageConstant,
			zap.String(logFieldEndpointConstant, endpointName),
			zap.String(logFieldBlobConstant, blobName),
		)
		return nil
	}

	existing, listError := service.client.ListRecords(executionContext, endpointName)
	if listError != nil {
		return pipeline.NewStepError(operationCreateRecordConstant, endpointName, listError)
	}
	existingIdentifiers := recordIdentifierSet(existing, recordIdentifierFieldNameConstant)

	createdCount := 0
	for _, record := range records {
		if identifier, hasIdentifier := record[recordIdentifierFieldNameConstant]; hasIdentifier {
			if _, alreadyPresent := existingIdentifiers[schema.KeyString(identifier)]; alreadyPresent {
				continue
			}
		}
		if createError := service.client.CreateRecord(executionContext, endpointName, record); createError != nil {
			return pipeline.NewStepError(operationCreateRecordConstant, endpointName, createError)
		}
		createdCount++
	}

	service.logger.Info(
		recordsCreatedMessageConstant,
		zap.String(logFieldEndpointConstant, endpointName),
		zap.Int(logFieldCreatedRecordCountConstant, createdCount),
	)
	return nil
}

func recordIdentifierSet(records []schema.Record, identifierFieldName string) map[string]struct{} {
	identifiers := make(map[string]struct{}, len(records))
	for _, record := range records {
		if identifier, hasIdentifier := record[identifierFieldName]; hasIdentifier {
			identifiers[schema.KeyString(identifier)] = struct{}{}
		}
	}
	return identifiers
}

func (service *Service) loadRoles(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointRolesConstant, template.BlobRoles)
}

func (service *Service) loadPolicies(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointPoliciesConstant, template.BlobPolicies)
}

func (service *Service) loadPermissions(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointPermissionsConstant, template.BlobPermissions)
}

func (service *Service) loadAccess(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointAccessConstant, template.BlobAccess)
}

// loadUsers creates template users missing from the target, matching on both
// identifier and email address. Accounts carrying an email that is already
// registered are skipped; creating them would collide on the unique constraint.
func (service *Service) loadUsers(executionContext context.Context, _ capabilities.Flags) error {
	var users []schema.Record
	present, readError := service.store.ReadBlobAllowMissing(template.BlobUsers, &users)
	if readError != nil {
		return readError
	}
	if !present {
		service.logger.Debug(
			blobAbsentMessageConstant,
			zap.String(logFieldEndpointConstant, endpointUsersConstant),
			zap.String(logFieldBlobConstant, template.BlobUsers),
		)
		return nil
	}

	existing, listError := service.client.ListRecords(executionContext, endpointUsersConstant)
	if listError != nil {
		return pipeline.NewStepError(operationCreateRecordConstant, endpointUsersConstant, listError)
	}
	existingIdentifiers := recordIdentifierSet(existing, recordIdentifierFieldNameConstant)
	existingEmails := recordIdentifierSet(existing, userEmailFieldNameConstant)

	createdCount := 0
	for _, user := range users {
		if identifier, hasIdentifier := user[recordIdentifierFieldNameConstant]; hasIdentifier {
			if _, alreadyPresent := existingIdentifiers[schema.KeyString(identifier)]; alreadyPresent {
				continue
			}
		}
		if email, hasEmail := user[userEmailFieldNameConstant]; hasEmail && email != nil {
			if _, alreadyPresent := existingEmails[schema.KeyString(email)]; alreadyPresent {
				continue
			}
		}
		if createError := service.client.CreateRecord(executionContext, endpointUsersConstant, user); createError != nil {
			return pipeline.NewStepError(operationCreateRecordConstant, endpointUsersConstant, createError)
		}
		createdCount++
	}

	service.logger.Info(
		recordsCreatedMessageConstant,
		zap.String(logFieldEndpointConstant, endpointUsersConstant),
		zap.Int(logFieldCreatedRecordCountConstant, createdCount),
	)
	return nil
}

func (service *Service) loadFlows(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointFlowsConstant, template.BlobFlows)
}

func (service *Service) loadOperations(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointOperationsConstant, template.BlobOperations)
}

func (service *Service) loadDashboards(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointDashboardsConstant, template.BlobDashboards)
}

func (service *Service) loadPanels(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointPanelsConstant, template.BlobPanels)
}

func (service *Service) loadTranslations(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointTranslationsConstant, template.BlobTranslations)
}

func (service *Service) loadPresets(executionContext context.Context, _ capabilities.Flags) error {
	return service.upsertRecordFamily(executionContext, endpointPresetsConstant, template.BlobPresets)
}

// loadSettings overwrites the target settings singleton with the template
// values. Settings are configuration, not data; the template wins.
func (service *Service) loadSettings(executionContext context.Context, _ capabilities.Flags) error {
	var settings schema.Record
	present, readError := service.store.ReadBlobAllowMissing(template.BlobSettings, &settings)
	if readError != nil {
		return readError
	}
	if !present || len(settings) == 0 {
		service.logger.Debug(blobAbsentMessageConstant, zap.String(logFieldBlobConstant, template.BlobSettings))
		return nil
	}

	if updateError := service.client.UpdateSettings(executionContext, settings); updateError != nil {
		return pipeline.NewStepError(operationUpdateSettingsConstant, "", updateError)
	}
	service.logger.Info(settingsUpdatedMessageConstant)
	return nil
}

// loadExtensions reconciles extension enablement. Extensions cannot be
// installed through the API, so the loader toggles the enabled flag on
// extensions present on both sides and warns about the rest.
func (service *Service) loadExtensions(executionContext context.Context, _ capabilities.Flags) error {
	var extensions []schema.Record
	present, readError := service.store.ReadBlobAllowMissing(template.BlobExtensions, &extensions)
	if readError != nil {
		return readError
	}
	if !present {
		service.logger.Debug(blobAbsentMessageConstant, zap.String(logFieldBlobConstant, template.BlobExtensions))
		return nil
	}

	installed, listError := service.client.ListExtensions(executionContext)
	if listError != nil {
		return pipeline.NewStepError(operationUpdateExtensionConstant, "", listError)
	}
	installedByIdentifier := make(map[string]schema.Record, len(installed))
	for _, extension := range installed {
		installedByIdentifier[extensionIdentity(extension)] = extension
	}

	for _, extension := range extensions {
		identity := extensionIdentity(extension)
		if len(identity) == 0 {
			continue
		}

		installedExtension, isInstalled := installedByIdentifier[identity]
		if !isInstalled {
			service.logger.Warn(extensionNotInstalledMessage, zap.String(logFieldExtensionConstant, identity))
			continue
		}

		desiredEnabled := extensionEnabled(extension)
		if extensionEnabled(installedExtension) == desiredEnabled {
			continue
		}

		meta := schema.Record{extensionMetaEnabledKeyConstant: desiredEnabled}
		if updateError := service.client.UpdateExtension(executionContext, identity, meta); updateError != nil {
			return pipeline.NewStepError(operationUpdateExtensionConstant, "", updateError)
		}
		service.logger.Info(
			extensionToggledMessageConstant,
			zap.String(logFieldExtensionConstant, identity),
			zap.Bool(logFieldExtensionEnabledConstant, desiredEnabled),
		)
	}
	return nil
}

// extensionIdentity prefers the registry identifier and falls back to the
// extension name for locally installed extensions.
func extensionIdentity(extension schema.Record) string {
	if identifier, hasIdentifier := extension[extensionIdentifierKeyConstant].(string); hasIdentifier && len(identifier) > 0 {
		return identifier
	}
	if name, hasName := extension[extensionNameKeyConstant].(string); hasName {
		return name
	}
	return ""
}

func extensionEnabled(extension schema.Record) bool {
	meta, hasMeta := extension[extensionMetaKeyConstant].(map[string]any)
	if !hasMeta {
		return false
	}
	enabled, _ := meta[extensionMetaEnabledKeyConstant].(bool)
	return enabled
}
