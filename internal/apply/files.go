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
	endpointFoldersConstant = "folders"
	endpointFilesConstant   = "files"

	folderParentFieldNameConstant   = "parent"
	fileUploaderFieldNameConstant   = "uploaded_by"
	fileModifierFieldNameConstant   = "modified_by"
	operationCreateFolderConstant   = "create-folder"
	operationUploadFileConstant     = "upload-file"
	assetMissingMessageConstant     = "Template has file metadata but no captured asset, skipping upload"
	foldersCreatedMessageConstant   = "Folders created"
	filesUploadedMessageConstant    = "Files uploaded"
	logFieldFileIdentifierConstant  = "file_id"
	logFieldUploadedCountConstant   = "uploaded"
	logFieldFolderCountConstant     = "created"
	logFieldOrphanedFoldersConstant = "orphaned"
)

// loadFolders creates missing folders parents-first so every parent reference
// resolves at creation time. Folders whose parent never materializes are
// created at the root on the final pass rather than dropped.
func (service *Service) loadFolders(executionContext context.Context, _ capabilities.Flags) error {
	var folders []schema.Record
	present, readError := service.store.ReadBlobAllowMissing(template.BlobFolders, &folders)
	if readError != nil {
		return readError
	}
	if !present {
		service.logger.Debug(blobAbsentMessageConstant, zap.String(logFieldBlobConstant, template.BlobFolders))
		return nil
	}

	existing, listError := service.client.ListRecords(executionContext, endpointFoldersConstant)
	if listError != nil {
		return pipeline.NewStepError(operationCreateFolderConstant, endpointFoldersConstant, listError)
	}
	resolved := recordIdentifierSet(existing, recordIdentifierFieldNameConstant)

	pending := make([]schema.Record, 0, len(folders))
	for _, folder := range folders {
		identifier, hasIdentifier := folder[recordIdentifierFieldNameConstant]
		if hasIdentifier {
			if _, alreadyPresent := resolved[schema.KeyString(identifier)]; alreadyPresent {
				continue
			}
		}
		pending = append(pending, folder)
	}

	createdCount := 0
	for len(pending) > 0 {
		remaining := make([]schema.Record, 0, len(pending))
		progressed := false

		for _, folder := range pending {
			parent, hasParent := folder[folderParentFieldNameConstant]
			if hasParent && parent != nil {
				if _, parentResolved := resolved[schema.KeyString(parent)]; !parentResolved {
					remaining = append(remaining, folder)
					continue
				}
			}
			if createError := service.client.CreateRecord(executionContext, endpointFoldersConstant, folder); createError != nil {
				return pipeline.NewStepError(operationCreateFolderConstant, endpointFoldersConstant, createError)
			}
			if identifier, hasIdentifier := folder[recordIdentifierFieldNameConstant]; hasIdentifier {
				resolved[schema.KeyString(identifier)] = struct{}{}
			}
			createdCount++
			progressed = true
		}

		if !progressed {
			// Parents referenced from outside the template; detach and create at the root.
			service.logger.Warn(
				foldersCreatedMessageConstant,
				zap.Int(logFieldOrphanedFoldersConstant, len(remaining)),
			)
			for _, folder := range remaining {
				detached := make(schema.Record, len(folder))
				for fieldName, fieldValue := range folder {
					detached[fieldName] = fieldValue
				}
				detached[folderParentFieldNameConstant] = nil
				if createError := service.client.CreateRecord(executionContext, endpointFoldersConstant, detached); createError != nil {
					return pipeline.NewStepError(operationCreateFolderConstant, endpointFoldersConstant, createError)
				}
				createdCount++
			}
			remaining = nil
		}
		pending = remaining
	}

	service.logger.Info(foldersCreatedMessageConstant, zap.Int(logFieldFolderCountConstant, createdCount))
	return nil
}

// loadFiles uploads every template file absent from the target. Metadata and
// binary contents travel together through the multipart files endpoint; file
// records whose asset was not captured are logged and skipped. Uploads are
// independent of each other and fan out concurrently.
func (service *Service) loadFiles(executionContext context.Context, _ capabilities.Flags) error {
	var files []schema.Record
	present, readError := service.store.ReadBlobAllowMissing(template.BlobFiles, &files)
	if readError != nil {
		return readError
	}
	if !present {
		service.logger.Debug(blobAbsentMessageConstant, zap.String(logFieldBlobConstant, template.BlobFiles))
		return nil
	}

	existing, listError := service.client.ListRecords(executionContext, endpointFilesConstant)
	if listError != nil {
		return pipeline.NewStepError(operationUploadFileConstant, endpointFilesConstant, listError)
	}
	existingIdentifiers := recordIdentifierSet(existing, recordIdentifierFieldNameConstant)

	missing := make([]schema.Record, 0, len(files))
	for _, file := range files {
		identifier, hasIdentifier := file[recordIdentifierFieldNameConstant]
		if hasIdentifier {
			if _, alreadyPresent := existingIdentifiers[schema.KeyString(identifier)]; alreadyPresent {
				continue
			}
		}
		missing = append(missing, file)
	}

	uploadError := pipeline.ForEachConcurrent(executionContext, missing, func(workerContext context.Context, file schema.Record) error {
		return service.uploadFile(workerContext, file)
	})
	if uploadError != nil {
		return uploadError
	}

	service.logger.Info(filesUploadedMessageConstant, zap.Int(logFieldUploadedCountConstant, len(missing)))
	return nil
}

func (service *Service) uploadFile(executionContext context.Context, file schema.Record) error {
	identifier, _ := file[recordIdentifierFieldNameConstant].(string)
	if !service.store.HasAsset(identifier) {
		service.logger.Warn(assetMissingMessageConstant, zap.String(logFieldFileIdentifierConstant, identifier))
		return nil
	}

	contents, openError := service.store.OpenAsset(identifier)
	if openError != nil {
		return pipeline.NewStepError(operationUploadFileConstant, endpointFilesConstant, openError)
	}
	defer contents.Close()

	metadata := make(schema.Record, len(file))
	for fieldName, fieldValue := range file {
		if fieldName == fileUploaderFieldNameConstant || fieldName == fileModifierFieldNameConstant {
			continue
		}
		metadata[fieldName] = fieldValue
	}

	if uploadError := service.client.UploadFile(executionContext, metadata, contents); uploadError != nil {
		return pipeline.NewStepError(operationUploadFileConstant, endpointFilesConstant, uploadError)
	}
	return nil
}
