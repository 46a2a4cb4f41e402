package extract

import (
	"context"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
)

const readItemsOperationConstant = "read-items"

// extractContent persists one content blob per eligible collection. The
// per-collection reads fan out concurrently, and a single collection's read
// failure is isolated: it is captured and logged without aborting the step,
// so the remaining collections still export.
func (service *Service) extractContent(executionContext context.Context, flags capabilities.Flags) error {
	collections, collectionsError := service.resolveCollections(executionContext, flags)
	if collectionsError != nil {
		return collectionsError
	}

	eligible := make([]schema.Collection, 0, len(collections))
	for _, collection := range collections {
		if !collection.HasSchema() {
			continue
		}
		eligible = append(eligible, collection)
	}

	return pipeline.ForEachConcurrent(executionContext, eligible, func(collectionContext context.Context, collection schema.Collection) error {
		records, readError := service.readCollectionContent(collectionContext, collection)
		if readError != nil {
			return pipeline.Capture(service.logger, pipeline.NewStepError(readItemsOperationConstant, collection.Collection, readError), false)
		}
		return service.store.WriteContentBlob(collection.Collection, records)
	})
}

func (service *Service) readCollectionContent(executionContext context.Context, collection schema.Collection) ([]schema.Record, error) {
	if collection.IsSingleton() {
		record, readError := service.client.ReadSingletonItem(executionContext, collection.Collection)
		if readError != nil {
			return nil, readError
		}
		if len(record) == 0 {
			return []schema.Record{}, nil
		}
		return []schema.Record{record}, nil
	}
	return service.client.ListItems(executionContext, collection.Collection, directus.ItemQuery{})
}
