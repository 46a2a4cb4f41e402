package directus_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/schema"
)

const (
	testAccessTokenConstant         = "static-token"
	testAuthorizationHeaderConstant = "Bearer static-token"
	testArticlesCollectionName      = "articles"
	testUploadFileNameConstant      = "logo.png"
	testUploadContentsConstant      = "png-bytes"
	testAssetIdentifierConstant     = "3f8e4a0f-4b7f-4a83-9a6b-56a2f0dd3c11"
	testAssetContentsConstant       = "asset-bytes"
	testServerPingResponseConstant  = "pong"
	testFailureResponseBodyConstant = `{"errors":[{"message":"forbidden"}]}`
)

func newTestClient(testInstance *testing.T, server *httptest.Server) *directus.Client {
	testInstance.Helper()
	client, clientError := directus.NewClient(server.URL, testAccessTokenConstant, zap.NewNop())
	require.NoError(testInstance, clientError)
	return client
}

func TestNewClientValidatesInputs(testInstance *testing.T) {
	testInstance.Parallel()

	_, missingURLError := directus.NewClient("  ", testAccessTokenConstant, zap.NewNop())
	require.ErrorIs(testInstance, missingURLError, directus.ErrBaseURLRequired)

	_, missingTokenError := directus.NewClient("http://localhost:8055", "", zap.NewNop())
	require.ErrorIs(testInstance, missingTokenError, directus.ErrAccessTokenRequired)
}

func TestClientSendsBearerTokenAndUnwrapsEnvelope(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, testAuthorizationHeaderConstant, request.Header.Get("Authorization"))
		require.Equal(testInstance, "/collections", request.URL.Path)

		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = responseWriter.Write([]byte(`{"data":[{"collection":"articles","schema":{"name":"articles"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	collections, listError := client.ListCollections(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, collections, 1)
	require.Equal(testInstance, testArticlesCollectionName, collections[0].Collection)
}

func TestClientSurfacesOperationErrorOnFailureStatus(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusForbidden)
		_, _ = responseWriter.Write([]byte(testFailureResponseBodyConstant))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	_, listError := client.ListItems(context.Background(), testArticlesCollectionName, directus.ItemQuery{})
	require.Error(testInstance, listError)

	var operationError directus.OperationError
	require.ErrorAs(testInstance, listError, &operationError)
	require.Equal(testInstance, directus.OperationReadItems, operationError.Operation)
	require.Equal(testInstance, testArticlesCollectionName, operationError.Collection)
	require.Equal(testInstance, http.StatusForbidden, operationError.StatusCode)
}

func TestListItemsBuildsQueryParameters(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		queryValues := request.URL.Query()
		require.Equal(testInstance, "1000", queryValues.Get("limit"))
		require.Equal(testInstance, "3", queryValues.Get("page"))
		require.Equal(testInstance, "id", queryValues.Get("fields"))

		_, _ = responseWriter.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	_, listError := client.ListItems(context.Background(), testArticlesCollectionName, directus.ItemQuery{
		Fields: []string{"id"},
		Limit:  1000,
		Page:   3,
	})
	require.NoError(testInstance, listError)
}

func TestListItemsDefaultsToUnlimited(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "-1", request.URL.Query().Get("limit"))
		_, _ = responseWriter.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	_, listError := client.ListItems(context.Background(), testArticlesCollectionName, directus.ItemQuery{})
	require.NoError(testInstance, listError)
}

func TestCreateItemsPostsBatchPayload(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, http.MethodPost, request.Method)
		require.Equal(testInstance, "/items/articles", request.URL.Path)
		require.Equal(testInstance, "application/json", request.Header.Get("Content-Type"))

		var payload []schema.Record
		require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&payload))
		require.Len(testInstance, payload, 2)

		responseWriter.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	createError := client.CreateItems(context.Background(), testArticlesCollectionName, []schema.Record{{"id": 1}, {"id": 2}})
	require.NoError(testInstance, createError)
}

func TestDownloadAssetStreamsBody(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "/assets/"+testAssetIdentifierConstant, request.URL.Path)
		_, _ = responseWriter.Write([]byte(testAssetContentsConstant))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	assetReader, downloadError := client.DownloadAsset(context.Background(), testAssetIdentifierConstant)
	require.NoError(testInstance, downloadError)
	defer assetReader.Close()

	assetBytes, readError := io.ReadAll(assetReader)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testAssetContentsConstant, string(assetBytes))
}

func TestUploadFileSendsMetadataBeforeContents(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, http.MethodPost, request.Method)
		require.Equal(testInstance, "/files", request.URL.Path)

		parseError := request.ParseMultipartForm(1 << 20)
		require.NoError(testInstance, parseError)

		require.Equal(testInstance, testUploadFileNameConstant, request.FormValue("filename_download"))
		require.Equal(testInstance, "images", request.FormValue("folder"))

		uploadedFile, fileHeader, formFileError := request.FormFile("file")
		require.NoError(testInstance, formFileError)
		defer uploadedFile.Close()

		require.Equal(testInstance, testUploadFileNameConstant, fileHeader.Filename)
		uploadedBytes, readError := io.ReadAll(uploadedFile)
		require.NoError(testInstance, readError)
		require.Equal(testInstance, testUploadContentsConstant, string(uploadedBytes))

		responseWriter.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)

	metadata := schema.Record{
		"filename_download": testUploadFileNameConstant,
		"folder":            "images",
	}
	uploadError := client.UploadFile(context.Background(), metadata, strings.NewReader(testUploadContentsConstant))
	require.NoError(testInstance, uploadError)
}

func TestPingServerChecksReachability(testInstance *testing.T) {
	testInstance.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "/server/ping", request.URL.Path)
		_, _ = responseWriter.Write([]byte(testServerPingResponseConstant))
	}))
	defer server.Close()

	client := newTestClient(testInstance, server)
	require.NoError(testInstance, client.Ping(context.Background()))
}
