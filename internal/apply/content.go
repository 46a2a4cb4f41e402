package apply

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
)

const (
	operationResolvePrimaryKeyConstant  = "resolve-primary-key"
	operationListExistingKeysConstant   = "list-existing-keys"
	operationCreateSkeletonsConstant    = "create-skeleton-records"
	operationUpdateFullRecordsConstant  = "update-full-records"
	operationUpdateSingletonConstant    = "update-singleton"
	primaryKeyMissingMessageConstant    = "collection has no primary key in the template field set"
	recordMissingKeyMessageConstant     = "Record missing primary-key value, record skipped"
	contentCollectionSkippedMessage     = "Collection absent from target, content skipped"
	skeletonsCreatedMessageConstant     = "Skeleton records created"
	recordsHydratedMessageConstant      = "Records hydrated"
	singletonUpdatedMessageConstant     = "Singleton updated"
	logFieldSkeletonCountConstant       = "skeletons"
	logFieldHydratedCountConstant       = "records"
	logFieldPrimaryKeyConstant          = "primary_key"
	logFieldContentCollectionConstant   = "collection"
	logFieldExistingRecordCountConstant = "existing"
)

var errPrimaryKeyMissing = errors.New(primaryKeyMissingMessageConstant)

// batchIndexed pairs a record batch with its position for failure reporting.
type batchIndexed struct {
	index   int
	records []schema.Record
}

func indexBatches(batches [][]schema.Record) []batchIndexed {
	indexed := make([]batchIndexed, 0, len(batches))
	for batchIndex, batch := range batches {
		indexed = append(indexed, batchIndexed{index: batchIndex, records: batch})
	}
	return indexed
}

// loadContent runs the two-phase content load. Phase one inserts key-only
// skeleton rows for every missing record so that circular foreign keys always
// have a row to point at; phase two hydrates every record with its full field
// values; phase three updates singleton collections in place. Collections fan
// out concurrently within each phase, and a phase only starts once the
// previous phase has finished everywhere.
func (service *Service) loadContent(executionContext context.Context, _ capabilities.Flags) error {
	collections, collectionsError := service.resolveTemplateCollections()
	if collectionsError != nil {
		return collectionsError
	}
	fields, fieldsError := service.resolveTemplateFields()
	if fieldsError != nil {
		return fieldsError
	}

	targetCollections, listError := service.client.ListCollections(executionContext)
	if listError != nil {
		return listError
	}
	targetNames := schema.CollectionNames(targetCollections)

	regular := make([]schema.Collection, 0, len(collections))
	singletons := make([]schema.Collection, 0)
	for _, collection := range collections {
		if !collection.HasSchema() {
			continue
		}
		if _, presentOnTarget := targetNames[collection.Collection]; !presentOnTarget {
			service.logger.Warn(contentCollectionSkippedMessage, zap.String(logFieldContentCollectionConstant, collection.Collection))
			continue
		}
		if collection.IsSingleton() {
			singletons = append(singletons, collection)
			continue
		}
		regular = append(regular, collection)
	}

	skeletonError := pipeline.ForEachConcurrent(executionContext, regular, func(workerContext context.Context, collection schema.Collection) error {
		return service.loadSkeletonRecords(workerContext, collection.Collection, fields)
	})
	if skeletonError != nil {
		return skeletonError
	}

	hydrateError := pipeline.ForEachConcurrent(executionContext, regular, func(workerContext context.Context, collection schema.Collection) error {
		return service.hydrateRecords(workerContext, collection.Collection, fields)
	})
	if hydrateError != nil {
		return hydrateError
	}

	return pipeline.ForEachConcurrent(executionContext, singletons, func(workerContext context.Context, collection schema.Collection) error {
		return service.updateSingletonContent(workerContext, collection.Collection)
	})
}

// loadSkeletonRecords inserts primary-key-only rows for every template record
// the target does not hold yet. Existing keys are collected through strictly
// sequential pagination before diffing.
func (service *Service) loadSkeletonRecords(executionContext context.Context, collectionName string, fields []schema.Field) error {
	records, present, readError := service.store.ReadContentBlob(collectionName)
	if readError != nil {
		return readError
	}
	if !present || len(records) == 0 {
		return nil
	}

	primaryKeyField, primaryKeyFound := schema.PrimaryKeyField(fields, collectionName)
	if !primaryKeyFound {
		return pipeline.NewStepError(operationResolvePrimaryKeyConstant, collectionName, errPrimaryKeyMissing)
	}

	existingKeys, existingError := service.existingPrimaryKeys(executionContext, collectionName, primaryKeyField)
	if existingError != nil {
		return existingError
	}

	skeletons := make([]schema.Record, 0, len(records))
	for _, record := range records {
		keyValue, hasKey := record.PrimaryKeyValue(primaryKeyField)
		if !hasKey {
			service.logger.Warn(
				recordMissingKeyMessageConstant,
				zap.String(logFieldContentCollectionConstant, collectionName),
				zap.String(logFieldPrimaryKeyConstant, primaryKeyField),
			)
			continue
		}
		if _, alreadyPresent := existingKeys[schema.KeyString(keyValue)]; alreadyPresent {
			continue
		}
		skeletons = append(skeletons, schema.Record{primaryKeyField: keyValue})
	}
	if len(skeletons) == 0 {
		return nil
	}

	batches := indexBatches(pipeline.Chunk(skeletons, pipeline.DefaultBatchSize))
	createError := pipeline.ForEachConcurrent(executionContext, batches, func(workerContext context.Context, batch batchIndexed) error {
		if batchError := service.client.CreateItems(workerContext, collectionName, batch.records); batchError != nil {
			return pipeline.NewStepError(operationCreateSkeletonsConstant, collectionName, batchError).WithBatch(batch.index)
		}
		return nil
	})
	if createError != nil {
		return createError
	}

	service.logger.Info(
		skeletonsCreatedMessageConstant,
		zap.String(logFieldContentCollectionConstant, collectionName),
		zap.Int(logFieldSkeletonCountConstant, len(skeletons)),
		zap.Int(logFieldExistingRecordCountConstant, len(existingKeys)),
	)
	return nil
}

// existingPrimaryKeys pages through the target collection projecting only the
// primary-key column and builds the membership set used for the diff.
func (service *Service) existingPrimaryKeys(executionContext context.Context, collectionName string, primaryKeyField string) (map[string]struct{}, error) {
	existingRecords, fetchError := pipeline.FetchAllPages(executionContext, pipeline.DefaultPageSize, func(pageContext context.Context, pageNumber int) ([]schema.Record, error) {
		page, pageError := service.client.ListItems(pageContext, collectionName, directus.ItemQuery{
			Fields: []string{primaryKeyField},
			Limit:  pipeline.DefaultPageSize,
			Page:   pageNumber,
		})
		if pageError != nil {
			return nil, pipeline.NewStepError(operationListExistingKeysConstant, collectionName, pageError).WithPage(pageNumber)
		}
		return page, nil
	})
	if fetchError != nil {
		return nil, fetchError
	}

	existingKeys := make(map[string]struct{}, len(existingRecords))
	for _, record := range existingRecords {
		if keyValue, hasKey := record.PrimaryKeyValue(primaryKeyField); hasKey {
			existingKeys[schema.KeyString(keyValue)] = struct{}{}
		}
	}
	return existingKeys, nil
}

// hydrateRecords overwrites every template record on the target with its full
// field values. By this point every foreign key resolves: the skeleton phase
// guaranteed a row exists for every key on both ends of any cycle. Records
// without a primary-key value are skipped the same way the skeleton phase
// skipped them; an update entry without a key would fail its whole batch.
// Audit references are stripped because they point at source-instance accounts.
func (service *Service) hydrateRecords(executionContext context.Context, collectionName string, fields []schema.Field) error {
	records, present, readError := service.store.ReadContentBlob(collectionName)
	if readError != nil {
		return readError
	}
	if !present || len(records) == 0 {
		return nil
	}

	primaryKeyField, primaryKeyFound := schema.PrimaryKeyField(fields, collectionName)
	if !primaryKeyFound {
		return pipeline.NewStepError(operationResolvePrimaryKeyConstant, collectionName, errPrimaryKeyMissing)
	}

	keyed := make([]schema.Record, 0, len(records))
	for _, record := range records {
		if _, hasKey := record.PrimaryKeyValue(primaryKeyField); !hasKey {
			service.logger.Warn(
				recordMissingKeyMessageConstant,
				zap.String(logFieldContentCollectionConstant, collectionName),
				zap.String(logFieldPrimaryKeyConstant, primaryKeyField),
			)
			continue
		}
		keyed = append(keyed, record)
	}
	if len(keyed) == 0 {
		return nil
	}

	stripped := schema.StripAuditFields(keyed)
	batches := indexBatches(pipeline.Chunk(stripped, pipeline.DefaultBatchSize))
	updateError := pipeline.ForEachConcurrent(executionContext, batches, func(workerContext context.Context, batch batchIndexed) error {
		if batchError := service.client.UpdateItems(workerContext, collectionName, batch.records); batchError != nil {
			return pipeline.NewStepError(operationUpdateFullRecordsConstant, collectionName, batchError).WithBatch(batch.index)
		}
		return nil
	})
	if updateError != nil {
		return updateError
	}

	service.logger.Info(
		recordsHydratedMessageConstant,
		zap.String(logFieldContentCollectionConstant, collectionName),
		zap.Int(logFieldHydratedCountConstant, len(stripped)),
	)
	return nil
}

// updateSingletonContent patches a singleton collection with its template
// record. Singletons always exist on the target once the collection does, so
// there is no skeleton phase.
func (service *Service) updateSingletonContent(executionContext context.Context, collectionName string) error {
	records, present, readError := service.store.ReadContentBlob(collectionName)
	if readError != nil {
		return readError
	}
	if !present || len(records) == 0 {
		return nil
	}

	record := records[0].WithoutAuditFields()
	if updateError := service.client.UpdateSingleton(executionContext, collectionName, record); updateError != nil {
		return pipeline.NewStepError(operationUpdateSingletonConstant, collectionName, updateError)
	}
	service.logger.Info(singletonUpdatedMessageConstant, zap.String(logFieldContentCollectionConstant, collectionName))
	return nil
}
