package apply

import (
	"context"

	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
)

const (
	operationCreateCollectionConstant = "create-collection"
	operationCreateFieldConstant      = "create-field"
	operationRestoreRequiredConstant  = "restore-required-field"
	operationCreateRelationConstant   = "create-relation"

	collectionCreatedMessageConstant = "Collection created"
	fieldCreatedMessageConstant      = "Field created"
	requiredDeferredMessageConstant  = "Required constraint deferred until content is loaded"
	requiredRestoredMessageConstant  = "Required constraint restored"
	relationCreatedMessageConstant   = "Relation created"

	logFieldCollectionNameConstant = "collection"
	logFieldFieldNameConstant      = "field"
	logFieldRelatedNameConstant    = "related_collection"
)

// loadCollections creates every template collection absent from the target.
// Existing collections are left untouched so repeated runs are additive.
func (service *Service) loadCollections(executionContext context.Context, _ capabilities.Flags) error {
	collections, readError := service.resolveTemplateCollections()
	if readError != nil {
		return readError
	}

	existing, listError := service.client.ListCollections(executionContext)
	if listError != nil {
		return listError
	}
	existingNames := schema.CollectionNames(existing)

	for _, collection := range collections {
		if _, present := existingNames[collection.Collection]; present {
			continue
		}
		if createError := service.client.CreateCollection(executionContext, collection); createError != nil {
			return pipeline.NewStepError(operationCreateCollectionConstant, collection.Collection, createError)
		}
		service.logger.Info(collectionCreatedMessageConstant, zap.String(logFieldCollectionNameConstant, collection.Collection))
	}
	return nil
}

// loadFields creates every template field absent from the target. Required
// constraints are created relaxed and restored after content loads, because
// two-phase content loading inserts key-only skeleton rows first.
func (service *Service) loadFields(executionContext context.Context, _ capabilities.Flags) error {
	fields, readError := service.resolveTemplateFields()
	if readError != nil {
		return readError
	}

	existing, listError := service.client.ListFields(executionContext)
	if listError != nil {
		return listError
	}
	existingKeys := make(map[string]struct{}, len(existing))
	for _, candidate := range existing {
		existingKeys[fieldIndexKey(candidate.Collection, candidate.Field)] = struct{}{}
	}

	for _, field := range fields {
		if _, present := existingKeys[fieldIndexKey(field.Collection, field.Field)]; present {
			continue
		}

		outbound := field
		if field.IsRequired() {
			outbound = field.WithRequired(false)
			service.deferredRequiredFields = append(service.deferredRequiredFields, field)
			service.logger.Debug(
				requiredDeferredMessageConstant,
				zap.String(logFieldCollectionNameConstant, field.Collection),
				zap.String(logFieldFieldNameConstant, field.Field),
			)
		}
		if createError := service.client.CreateField(executionContext, outbound); createError != nil {
			return pipeline.NewStepError(operationCreateFieldConstant, field.Collection, createError)
		}
		service.logger.Info(
			fieldCreatedMessageConstant,
			zap.String(logFieldCollectionNameConstant, field.Collection),
			zap.String(logFieldFieldNameConstant, field.Field),
		)
	}
	return nil
}

// restoreRequiredFields reinstates the required constraints deferred during
// field creation. Runs after content loading so fully populated rows satisfy
// the constraints being switched on.
func (service *Service) restoreRequiredFields(executionContext context.Context, _ capabilities.Flags) error {
	for _, field := range service.deferredRequiredFields {
		if updateError := service.client.UpdateField(executionContext, field.WithRequired(true)); updateError != nil {
			return pipeline.NewStepError(operationRestoreRequiredConstant, field.Collection, updateError)
		}
		service.logger.Info(
			requiredRestoredMessageConstant,
			zap.String(logFieldCollectionNameConstant, field.Collection),
			zap.String(logFieldFieldNameConstant, field.Field),
		)
	}
	return nil
}

// loadRelations creates every template relation whose identity triple is
// absent from the target. Creation is strictly sequential: relation writes
// mutate shared schema state on the instance and are not safe to issue
// concurrently.
func (service *Service) loadRelations(executionContext context.Context, flags capabilities.Flags) error {
	collections, collectionsError := service.resolveTemplateCollections()
	if collectionsError != nil {
		return collectionsError
	}

	var relations []schema.Relation
	if readError := service.store.ReadBlob(template.BlobRelations, &relations); readError != nil {
		return readError
	}

	existing, listError := service.client.ListRelations(executionContext)
	if listError != nil {
		return listError
	}
	existingIdentities := schema.RelationIdentitySet(existing)

	extensionOwned := map[string]struct{}{}
	if flags.ExcludeExtensionCollections {
		extensionOwned = schema.ExtensionOwnedNames(collections)
	}

	for _, relation := range relations {
		if _, owned := extensionOwned[relation.Collection]; owned {
			continue
		}
		if _, owned := extensionOwned[relation.RelatedCollection]; owned {
			continue
		}
		if _, present := existingIdentities[relation.IdentityKey()]; present {
			continue
		}
		if createError := service.client.CreateRelation(executionContext, relation.WithoutMetaIdentifier()); createError != nil {
			return pipeline.NewStepError(operationCreateRelationConstant, relation.Collection, createError)
		}
		service.logger.Info(
			relationCreatedMessageConstant,
			zap.String(logFieldCollectionNameConstant, relation.Collection),
			zap.String(logFieldFieldNameConstant, relation.Field),
			zap.String(logFieldRelatedNameConstant, relation.RelatedCollection),
		)
	}
	return nil
}
