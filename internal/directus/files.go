package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/stencilhq/stencil/internal/schema"
)

const (
	assetPathTemplateConstant         = "/assets/%s"
	filesPathConstant                 = "/files"
	filePartNameConstant              = "file"
	fileMetaEncodeErrorTemplate       = "unable to encode file metadata part %s: %w"
	filePartCreateErrorTemplate       = "unable to create multipart file part: %w"
	filePartCopyErrorTemplate         = "unable to copy file contents: %w"
	multipartCloseErrorTemplate       = "unable to finalize multipart payload: %w"
	assetStatusErrorTemplateConstant  = "remote returned %d while streaming asset"
	fileNameMetadataKeyConstant       = "filename_download"
	fallbackUploadFileNameConstant    = "upload"
	fileIdentifierMetadataKeyConstant = "id"
)

// DownloadAsset streams the binary contents of one stored file. The caller
// owns the returned reader.
func (client *Client) DownloadAsset(executionContext context.Context, fileIdentifier string) (io.ReadCloser, error) {
	requestPath := fmt.Sprintf(assetPathTemplateConstant, fileIdentifier)
	httpRequest, buildError := client.newRequest(executionContext, http.MethodGet, requestPath, nil, nil)
	if buildError != nil {
		return nil, client.operationFailure(OperationDownloadAsset, fileIdentifier, 0, buildError)
	}

	httpResponse, transportError := client.httpClient.Do(httpRequest)
	if transportError != nil {
		return nil, client.operationFailure(OperationDownloadAsset, fileIdentifier, 0, transportError)
	}
	if httpResponse.StatusCode >= http.StatusBadRequest {
		httpResponse.Body.Close()
		statusFailure := fmt.Errorf(assetStatusErrorTemplateConstant, httpResponse.StatusCode)
		return nil, client.operationFailure(OperationDownloadAsset, fileIdentifier, httpResponse.StatusCode, statusFailure)
	}
	return httpResponse.Body, nil
}

// UploadFile creates one file on the target by streaming its metadata and
// binary contents as a multipart payload. Metadata parts precede the file part
// so the instance applies them to the upload.
func (client *Client) UploadFile(executionContext context.Context, metadata schema.Record, contents io.Reader) error {
	fileIdentifier, _ := metadata[fileIdentifierMetadataKeyConstant].(string)

	var payloadBuffer bytes.Buffer
	multipartWriter := multipart.NewWriter(&payloadBuffer)

	for metadataKey, metadataValue := range metadata {
		encodedValue, encodeError := encodeMetadataPart(metadataValue)
		if encodeError != nil {
			return client.operationFailure(OperationUploadFile, fileIdentifier, 0, fmt.Errorf(fileMetaEncodeErrorTemplate, metadataKey, encodeError))
		}
		if writeError := multipartWriter.WriteField(metadataKey, encodedValue); writeError != nil {
			return client.operationFailure(OperationUploadFile, fileIdentifier, 0, writeError)
		}
	}

	uploadFileName, _ := metadata[fileNameMetadataKeyConstant].(string)
	if len(strings.TrimSpace(uploadFileName)) == 0 {
		uploadFileName = fallbackUploadFileNameConstant
	}

	filePart, partError := multipartWriter.CreateFormFile(filePartNameConstant, uploadFileName)
	if partError != nil {
		return client.operationFailure(OperationUploadFile, fileIdentifier, 0, fmt.Errorf(filePartCreateErrorTemplate, partError))
	}
	if _, copyError := io.Copy(filePart, contents); copyError != nil {
		return client.operationFailure(OperationUploadFile, fileIdentifier, 0, fmt.Errorf(filePartCopyErrorTemplate, copyError))
	}
	if closeError := multipartWriter.Close(); closeError != nil {
		return client.operationFailure(OperationUploadFile, fileIdentifier, 0, fmt.Errorf(multipartCloseErrorTemplate, closeError))
	}

	httpRequest, buildError := client.newRequest(executionContext, http.MethodPost, filesPathConstant, nil, &payloadBuffer)
	if buildError != nil {
		return client.operationFailure(OperationUploadFile, fileIdentifier, 0, buildError)
	}
	httpRequest.Header.Set(contentTypeHeaderNameConstant, multipartWriter.FormDataContentType())

	httpResponse, transportError := client.httpClient.Do(httpRequest)
	if transportError != nil {
		return client.operationFailure(OperationUploadFile, fileIdentifier, 0, transportError)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= http.StatusBadRequest {
		responseBody, _ := io.ReadAll(httpResponse.Body)
		statusFailure := fmt.Errorf(remoteStatusErrorTemplateConstant, httpResponse.StatusCode, strings.TrimSpace(string(responseBody)))
		return client.operationFailure(OperationUploadFile, fileIdentifier, httpResponse.StatusCode, statusFailure)
	}
	return nil
}

func encodeMetadataPart(metadataValue any) (string, error) {
	switch typedValue := metadataValue.(type) {
	case string:
		return typedValue, nil
	case nil:
		return "", nil
	default:
		encoded, encodeError := json.Marshal(typedValue)
		if encodeError != nil {
			return "", encodeError
		}
		return string(encoded), nil
	}
}
