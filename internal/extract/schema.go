package extract

import (
	"context"
	"strings"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
)

const fieldIndexKeySeparatorConstant = "/"

// extractCollections reads every collection from the source, applies the
// system-prefix and extension-group filters, and persists the survivors.
func (service *Service) extractCollections(executionContext context.Context, flags capabilities.Flags) error {
	collections, listError := service.client.ListCollections(executionContext)
	if listError != nil {
		return listError
	}

	service.allCollections = collections
	service.filteredCollections = schema.FilterCollections(collections, flags.ExcludeExtensionCollections)
	return service.store.WriteBlob(template.BlobCollections, service.filteredCollections)
}

// extractFields persists the fields belonging to migrated collections plus the
// custom fields layered onto system collections. Surrogate meta identifiers
// are stripped; they are meaningless outside the source instance.
func (service *Service) extractFields(executionContext context.Context, flags capabilities.Flags) error {
	collections, collectionsError := service.resolveCollections(executionContext, flags)
	if collectionsError != nil {
		return collectionsError
	}

	fields, listError := service.client.ListFields(executionContext)
	if listError != nil {
		return listError
	}

	service.extractedFields = filterFields(fields, schema.CollectionNames(collections))
	return service.store.WriteBlob(template.BlobFields, service.extractedFields)
}

// extractRelations persists the relations connecting migrated collections.
// Relations touching system fields on system collections are dropped unless
// the field is a retained custom field; relations involving extension-owned
// collections are dropped when the exclusion flag is set.
func (service *Service) extractRelations(executionContext context.Context, flags capabilities.Flags) error {
	fields, fieldsError := service.resolveFields(executionContext, flags)
	if fieldsError != nil {
		return fieldsError
	}

	relations, listError := service.client.ListRelations(executionContext)
	if listError != nil {
		return listError
	}

	retainedFieldIndex := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		retainedFieldIndex[fieldIndexKey(field.Collection, field.Field)] = struct{}{}
	}

	extensionOwned := map[string]struct{}{}
	if flags.ExcludeExtensionCollections {
		extensionOwned = schema.ExtensionOwnedNames(service.allCollections)
	}

	filtered := make([]schema.Relation, 0, len(relations))
	for _, relation := range relations {
		if schema.IsSystemCollectionName(relation.Collection) {
			if _, retained := retainedFieldIndex[fieldIndexKey(relation.Collection, relation.Field)]; !retained {
				continue
			}
		}
		if _, excluded := extensionOwned[relation.Collection]; excluded {
			continue
		}
		if _, excluded := extensionOwned[relation.RelatedCollection]; excluded {
			continue
		}
		filtered = append(filtered, relation)
	}

	return service.store.WriteBlob(template.BlobRelations, filtered)
}

// filterFields keeps fields of migrated collections and custom fields layered
// onto system collections, stripping surrogate meta identifiers everywhere.
func filterFields(fields []schema.Field, migratedCollections map[string]struct{}) []schema.Field {
	filtered := make([]schema.Field, 0, len(fields))
	for _, field := range fields {
		if schema.IsSystemCollectionName(field.Collection) {
			if !field.HasCustomMeta() {
				continue
			}
		} else if _, migrated := migratedCollections[field.Collection]; !migrated {
			continue
		}
		filtered = append(filtered, field.WithoutMetaIdentifier())
	}
	return filtered
}

func fieldIndexKey(collectionName string, fieldName string) string {
	return strings.Join([]string{collectionName, fieldName}, fieldIndexKeySeparatorConstant)
}
