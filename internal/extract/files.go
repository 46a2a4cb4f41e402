package extract

import (
	"context"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/pipeline"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
)

const (
	fileIdentifierFieldNameConstant = "id"
	downloadAssetOperationConstant  = "download-asset"
)

func (service *Service) extractFolders(executionContext context.Context, _ capabilities.Flags) error {
	return service.extractRecordFamily(executionContext, endpointFoldersConstant, template.BlobFolders)
}

func (service *Service) extractFileMetadata(executionContext context.Context, _ capabilities.Flags) error {
	files, listError := service.client.ListRecords(executionContext, endpointFilesConstant)
	if listError != nil {
		return listError
	}
	service.fileRecords = files
	return service.store.WriteBlob(template.BlobFiles, files)
}

// downloadAssets captures the binary contents of every extracted file. The
// downloads fan out concurrently; any failure is fatal to the step.
func (service *Service) downloadAssets(executionContext context.Context, _ capabilities.Flags) error {
	return pipeline.ForEachConcurrent(executionContext, service.fileRecords, func(downloadContext context.Context, fileRecord schema.Record) error {
		fileIdentifierValue, identifierPresent := fileRecord[fileIdentifierFieldNameConstant]
		if !identifierPresent {
			return nil
		}
		fileIdentifier := schema.KeyString(fileIdentifierValue)

		assetReader, downloadError := service.client.DownloadAsset(downloadContext, fileIdentifier)
		if downloadError != nil {
			return pipeline.Capture(service.logger, pipeline.NewStepError(downloadAssetOperationConstant, fileIdentifier, downloadError), true)
		}
		defer assetReader.Close()

		return service.store.WriteAsset(fileIdentifier, assetReader)
	})
}
