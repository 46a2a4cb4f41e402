package extract

import (
	"context"

	"github.com/stencilhq/stencil/internal/capabilities"
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
	endpointFoldersConstant      = "folders"
	endpointFilesConstant        = "files"
	endpointFlowsConstant        = "flows"
	endpointOperationsConstant   = "operations"
	endpointDashboardsConstant   = "dashboards"
	endpointPanelsConstant       = "panels"
	endpointTranslationsConstant = "translations"
	endpointPresetsConstant      = "presets"
)

// User secret fields scrubbed on extraction; credentials never travel through templates.
var userSecretFieldNames = []string{"password", "token", "tfa_secret"}

func (service *Service) extractRecordFamily(executionContext context.Context, endpointName string, blobName string) error {
	records, listError := service.client.ListRecords(executionContext, endpointName)
	if listError != nil {
		return listError
	}
	return service.store.WriteBlob(blobName, records)
}

func (service *Service) extractRoles(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointRolesConstant, template.BlobRoles)
}

func (service *Service) extractPermissions(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointPermissionsConstant, template.BlobPermissions)
}

func (service *Service) extractPolicies(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointPoliciesConstant, template.BlobPolicies)
}

func (service *Service) extractAccess(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointAccessConstant, template.BlobAccess)
}

func (service *Service) extractUsers(executionContext context.Context, _ capabilities.Flags) error {
	users, listError := service.client.ListRecords(executionContext, endpointUsersConstant)
	if listError != nil {
		return listError
	}

	scrubbed := make([]schema.Record, 0, len(users))
	for _, user := range users {
		duplicated := make(schema.Record, len(user))
		for fieldName, fieldValue := range user {
			duplicated[fieldName] = fieldValue
		}
		for _, secretFieldName := range userSecretFieldNames {
			delete(duplicated, secretFieldName)
		}
		scrubbed = append(scrubbed, duplicated)
	}
	return service.store.WriteBlob(template.BlobUsers, scrubbed)
}

func (service *Service) extractSettings(executionContext context.Context, _ capabilities.Flags) error {
	settings, readError := service.client.ReadSettings(executionContext)
	if readError != nil {
		return readError
	}
	return service.store.WriteBlob(template.BlobSettings, settings)
}

func (service *Service) extractTranslations(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointTranslationsConstant, template.BlobTranslations)
}

func (service *Service) extractPresets(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointPresetsConstant, template.BlobPresets)
}

func (service *Service) extractFlows(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointFlowsConstant, template.BlobFlows)
}

func (service *Service) extractOperations(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointOperationsConstant, template.BlobOperations)
}

func (service *Service) extractDashboards(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointDashboardsConstant, template.BlobDashboards)
}

func (service *Service) extractPanels(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointPanelsConstant, template.BlobPanels)
}

func (service *Service) extractExtensions(executionContext context.Context, _ capabilities.Flags) error {
	extensions, listError := service.client.ListExtensions(executionContext)
	if listError != nil {
		return listError
	}
	return service.store.WriteBlob(template.BlobExtensions, extensions)
}
