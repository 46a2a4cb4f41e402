package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	authorizationHeaderNameConstant     = "Authorization"
	authorizationHeaderTemplateConstant = "Bearer %s"
	contentTypeHeaderNameConstant       = "Content-Type"
	jsonContentTypeConstant             = "application/json"
	baseURLRequiredMessageConstant      = "instance base URL is required"
	accessTokenRequiredMessageConstant  = "instance access token is required"
	requestBuildErrorTemplateConstant   = "unable to build request: %w"
	payloadEncodeErrorTemplateConstant  = "unable to encode request payload: %w"
	responseDecodeErrorTemplateConstant = "unable to decode response payload: %w"
	responseReadErrorTemplateConstant   = "unable to read response body: %w"
	remoteStatusErrorTemplateConstant   = "remote returned %d: %s"
	defaultRequestTimeoutConstant       = 2 * time.Minute

	operationErrorTemplateConstant               = "%s operation failed: %v"
	operationErrorWithCollectionTemplateConstant = "%s operation failed for collection %s: %v"

	requestLogMessageConstant  = "Instance request"
	logFieldMethodConstant     = "method"
	logFieldPathConstant       = "path"
	logFieldOperationConstant  = "operation"
	logFieldCollectionConstant = "collection"
)

// OperationName identifies a named REST workflow supported by the client.
type OperationName string

// Operation descriptors shared with the extract and apply pipelines.
const (
	OperationReadCollections  OperationName = "read-collections"
	OperationCreateCollection OperationName = "create-collection"
	OperationReadFields       OperationName = "read-fields"
	OperationCreateField      OperationName = "create-field"
	OperationUpdateField      OperationName = "update-field"
	OperationReadRelations    OperationName = "read-relations"
	OperationCreateRelation   OperationName = "create-relation"
	OperationReadItems        OperationName = "read-items"
	OperationCreateItems      OperationName = "create-items"
	OperationUpdateItemsBatch OperationName = "update-items-batch"
	OperationUpdateSingleton  OperationName = "update-singleton"
	OperationReadRecords      OperationName = "read-records"
	OperationCreateRecord     OperationName = "create-record"
	OperationReadSettings     OperationName = "read-settings"
	OperationUpdateSettings   OperationName = "update-settings"
	OperationReadExtensions   OperationName = "read-extensions"
	OperationUpdateExtension  OperationName = "update-extension"
	OperationDownloadAsset    OperationName = "download-asset"
	OperationUploadFile       OperationName = "upload-file"
	OperationPingServer       OperationName = "ping-server"
)

var (
	// ErrBaseURLRequired indicates the client was constructed without an instance URL.
	ErrBaseURLRequired     = errors.New(baseURLRequiredMessageConstant)
	// ErrAccessTokenRequired indicates the client was constructed without a token.
	ErrAccessTokenRequired = errors.New(accessTokenRequiredMessageConstant)
)

// OperationError surfaces a failed REST operation with its context.
type OperationError struct {
	Operation  OperationName
	Collection string
	StatusCode int
	Cause      error
}

// Error renders the operation name, collection, and cause.
func (operationError OperationError) Error() string {
	if len(operationError.Collection) > 0 {
		return fmt.Sprintf(operationErrorWithCollectionTemplateConstant, operationError.Operation, operationError.Collection, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// Client issues authenticated REST requests against one Directus instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a client for the instance behind baseURL using a static access token.
func NewClient(baseURL string, token string, logger *zap.Logger) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLRequired
	}
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, ErrAccessTokenRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    trimmedBaseURL,
		token:      trimmedToken,
		httpClient: &http.Client{Timeout: defaultRequestTimeoutConstant},
		logger:     logger,
	}, nil
}

type responseEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// request performs one JSON request/response round trip. A non-nil target is
// populated from the data envelope every payload is wrapped in.
func (client *Client) request(executionContext context.Context, operation OperationName, collectionName string, method string, requestPath string, query url.Values, requestBody any, target any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encodedBody, encodeError := json.Marshal(requestBody)
		if encodeError != nil {
			return client.operationFailure(operation, collectionName, 0, fmt.Errorf(payloadEncodeErrorTemplateConstant, encodeError))
		}
		bodyReader = bytes.NewReader(encodedBody)
	}

	httpRequest, buildError := client.newRequest(executionContext, method, requestPath, query, bodyReader)
	if buildError != nil {
		return client.operationFailure(operation, collectionName, 0, buildError)
	}
	if requestBody != nil {
		httpRequest.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	}

	client.logger.Debug(
		requestLogMessageConstant,
		zap.String(logFieldMethodConstant, method),
		zap.String(logFieldPathConstant, requestPath),
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldCollectionConstant, collectionName),
	)

	httpResponse, transportError := client.httpClient.Do(httpRequest)
	if transportError != nil {
		return client.operationFailure(operation, collectionName, 0, transportError)
	}
	defer httpResponse.Body.Close()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		return client.operationFailure(operation, collectionName, httpResponse.StatusCode, fmt.Errorf(responseReadErrorTemplateConstant, readError))
	}

	if httpResponse.StatusCode >= http.StatusBadRequest {
		statusFailure := fmt.Errorf(remoteStatusErrorTemplateConstant, httpResponse.StatusCode, strings.TrimSpace(string(responseBody)))
		return client.operationFailure(operation, collectionName, httpResponse.StatusCode, statusFailure)
	}

	if target == nil || len(responseBody) == 0 {
		return nil
	}

	var envelope responseEnvelope
	if decodeError := json.Unmarshal(responseBody, &envelope); decodeError != nil {
		return client.operationFailure(operation, collectionName, httpResponse.StatusCode, fmt.Errorf(responseDecodeErrorTemplateConstant, decodeError))
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if decodeError := json.Unmarshal(envelope.Data, target); decodeError != nil {
		return client.operationFailure(operation, collectionName, httpResponse.StatusCode, fmt.Errorf(responseDecodeErrorTemplateConstant, decodeError))
	}
	return nil
}

func (client *Client) newRequest(executionContext context.Context, method string, requestPath string, query url.Values, bodyReader io.Reader) (*http.Request, error) {
	requestURL := client.baseURL + requestPath
	if len(query) > 0 {
		requestURL = requestURL + "?" + query.Encode()
	}

	httpRequest, buildError := http.NewRequestWithContext(executionContext, method, requestURL, bodyReader)
	if buildError != nil {
		return nil, fmt.Errorf(requestBuildErrorTemplateConstant, buildError)
	}
	httpRequest.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationHeaderTemplateConstant, client.token))
	return httpRequest, nil
}

func (client *Client) operationFailure(operation OperationName, collectionName string, statusCode int, cause error) error {
	return OperationError{Operation: operation, Collection: collectionName, StatusCode: statusCode, Cause: cause}
}
