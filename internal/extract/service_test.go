package extract_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stencilhq/stencil/internal/capabilities"
	"github.com/stencilhq/stencil/internal/directus"
	"github.com/stencilhq/stencil/internal/extract"
	"github.com/stencilhq/stencil/internal/schema"
	"github.com/stencilhq/stencil/internal/template"
)

const (
	articlesCollectionNameConstant  = "articles"
	authorsCollectionNameConstant   = "authors"
	extensionCollectionNameConstant = "extension_store"
	settingsCollectionNameConstant  = "site_settings"
	testToolVersionConstant         = "1.2.3"
	brokenCollectionNameConstant    = "broken"
)

type sourceStub struct {
	collections []schema.Collection
	fields      []schema.Field
	relations   []schema.Relation
	items       map[string][]schema.Record
	singletons  map[string]schema.Record
	records     map[string][]schema.Record
	settings    schema.Record
	extensions  []schema.Record
	assets      map[string]string

	itemFailures map[string]error
}

func (stub *sourceStub) Ping(_ context.Context) error { return nil }

func (stub *sourceStub) ListCollections(_ context.Context) ([]schema.Collection, error) {
	return stub.collections, nil
}

func (stub *sourceStub) ListFields(_ context.Context) ([]schema.Field, error) {
	return stub.fields, nil
}

func (stub *sourceStub) ListRelations(_ context.Context) ([]schema.Relation, error) {
	return stub.relations, nil
}

func (stub *sourceStub) ListItems(_ context.Context, collectionName string, _ directus.ItemQuery) ([]schema.Record, error) {
	if failure, failing := stub.itemFailures[collectionName]; failing {
		return nil, failure
	}
	return stub.items[collectionName], nil
}

func (stub *sourceStub) ReadSingletonItem(_ context.Context, collectionName string) (schema.Record, error) {
	return stub.singletons[collectionName], nil
}

func (stub *sourceStub) ListRecords(_ context.Context, endpointName string) ([]schema.Record, error) {
	return stub.records[endpointName], nil
}

func (stub *sourceStub) ReadSettings(_ context.Context) (schema.Record, error) {
	return stub.settings, nil
}

func (stub *sourceStub) ListExtensions(_ context.Context) ([]schema.Record, error) {
	return stub.extensions, nil
}

func (stub *sourceStub) DownloadAsset(_ context.Context, fileIdentifier string) (io.ReadCloser, error) {
	contents, present := stub.assets[fileIdentifier]
	if !present {
		return nil, errors.New("asset not found")
	}
	return io.NopCloser(strings.NewReader(contents)), nil
}

func buildSourceStub() *sourceStub {
	return &sourceStub{
		collections: []schema.Collection{
			{Collection: articlesCollectionNameConstant, Schema: map[string]any{"name": articlesCollectionNameConstant}},
			{Collection: authorsCollectionNameConstant, Schema: map[string]any{"name": authorsCollectionNameConstant}},
			{
				Collection: settingsCollectionNameConstant,
				Meta:       &schema.CollectionMeta{Singleton: true},
				Schema:     map[string]any{"name": settingsCollectionNameConstant},
			},
			{
				Collection: extensionCollectionNameConstant,
				Meta:       &schema.CollectionMeta{Group: schema.ExtensionGroupName},
				Schema:     map[string]any{"name": extensionCollectionNameConstant},
			},
			{Collection: "directus_users"},
		},
		fields: []schema.Field{
			{Collection: articlesCollectionNameConstant, Field: "id", Meta: map[string]any{"id": 11}, Schema: map[string]any{"is_primary_key": true}},
			{Collection: articlesCollectionNameConstant, Field: "author", Meta: map[string]any{"id": 12}},
			{Collection: "directus_users", Field: "department", Meta: map[string]any{"id": 13}},
			{Collection: "directus_users", Field: "email", Meta: map[string]any{"id": 14, "system": true}},
			{Collection: "directus_activity", Field: "action"},
		},
		relations: []schema.Relation{
			{Collection: articlesCollectionNameConstant, Field: "author", RelatedCollection: authorsCollectionNameConstant},
			{Collection: "directus_users", Field: "department", RelatedCollection: authorsCollectionNameConstant},
			{Collection: "directus_users", Field: "role", RelatedCollection: "directus_roles"},
			{Collection: extensionCollectionNameConstant, Field: "owner", RelatedCollection: authorsCollectionNameConstant},
		},
		items: map[string][]schema.Record{
			articlesCollectionNameConstant: {{"id": 1, "title": "first"}},
			authorsCollectionNameConstant:  {{"id": 7, "name": "ada"}},
		},
		singletons: map[string]schema.Record{
			settingsCollectionNameConstant: {"id": 1, "headline": "welcome"},
		},
		records: map[string][]schema.Record{
			"roles":   {{"id": "editor-role"}},
			"users":   {{"id": "user-1", "email": "ada@example.com", "password": "hunter2", "token": "tkn", "tfa_secret": "otp"}},
			"folders": {{"id": "folder-1", "parent": nil}},
			"files":   {{"id": "file-1", "filename_download": "logo.png"}},
			"flows":   {{"id": "flow-1"}},
		},
		settings:   schema.Record{"project_name": "stencil"},
		extensions: []schema.Record{{"name": "insights", "meta": map[string]any{"enabled": true}}},
		assets:     map[string]string{"file-1": "binary-bytes"},
	}
}

func newExtractService(testInstance *testing.T, stub *sourceStub) (*extract.Service, *template.Store) {
	testInstance.Helper()

	store, storeError := template.NewStore(testInstance.TempDir())
	require.NoError(testInstance, storeError)

	service, serviceError := extract.NewService(extract.ServiceDependencies{
		Logger:      zap.NewNop(),
		Client:      stub,
		Store:       store,
		ToolVersion: testToolVersionConstant,
	})
	require.NoError(testInstance, serviceError)
	return service, store
}

func TestServiceRequiresClientAndStore(testInstance *testing.T) {
	testInstance.Parallel()

	store, storeError := template.NewStore(testInstance.TempDir())
	require.NoError(testInstance, storeError)

	_, missingClientError := extract.NewService(extract.ServiceDependencies{Store: store})
	require.Error(testInstance, missingClientError)

	_, missingStoreError := extract.NewService(extract.ServiceDependencies{Client: &sourceStub{}})
	require.Error(testInstance, missingStoreError)
}

func TestExecuteWritesEveryEnabledBlob(testInstance *testing.T) {
	testInstance.Parallel()

	service, store := newExtractService(testInstance, buildSourceStub())

	require.NoError(testInstance, service.Execute(context.Background(), capabilities.Defaults()))

	require.True(testInstance, store.HasBlobs(
		template.BlobCollections,
		template.BlobFields,
		template.BlobRelations,
		template.BlobRoles,
		template.BlobUsers,
		template.BlobFolders,
		template.BlobFiles,
		template.BlobSettings,
		template.BlobFlows,
		template.BlobExtensions,
		template.BlobManifest,
	))

	var collections []schema.Collection
	require.NoError(testInstance, store.ReadBlob(template.BlobCollections, &collections))
	collectionNames := schema.CollectionNames(collections)
	require.Contains(testInstance, collectionNames, articlesCollectionNameConstant)
	require.Contains(testInstance, collectionNames, extensionCollectionNameConstant)
	require.NotContains(testInstance, collectionNames, "directus_users")

	articleRecords, articlesPresent, contentError := store.ReadContentBlob(articlesCollectionNameConstant)
	require.NoError(testInstance, contentError)
	require.True(testInstance, articlesPresent)
	require.Len(testInstance, articleRecords, 1)

	singletonRecords, singletonPresent, singletonError := store.ReadContentBlob(settingsCollectionNameConstant)
	require.NoError(testInstance, singletonError)
	require.True(testInstance, singletonPresent)
	require.Len(testInstance, singletonRecords, 1)

	require.True(testInstance, store.HasAsset("file-1"))

	var manifest template.Manifest
	require.NoError(testInstance, store.ReadBlob(template.BlobManifest, &manifest))
	require.Equal(testInstance, testToolVersionConstant, manifest.ToolVersion)
}

func TestExecuteSkipsDisabledFamilies(testInstance *testing.T) {
	testInstance.Parallel()

	service, store := newExtractService(testInstance, buildSourceStub())

	flags := capabilities.Defaults()
	flags.Schema = false
	flags.Files = false
	flags.Users = false

	require.NoError(testInstance, service.Execute(context.Background(), flags))

	require.False(testInstance, store.HasBlobs(template.BlobCollections))
	require.False(testInstance, store.HasBlobs(template.BlobFiles))
	require.False(testInstance, store.HasBlobs(template.BlobUsers))
	require.True(testInstance, store.HasBlobs(template.BlobRoles))
	require.True(testInstance, store.HasBlobs(template.BlobManifest))
}

func TestFieldExtractionKeepsCustomSystemFieldsAndStripsMetaIdentifiers(testInstance *testing.T) {
	testInstance.Parallel()

	service, store := newExtractService(testInstance, buildSourceStub())

	require.NoError(testInstance, service.Execute(context.Background(), capabilities.Defaults()))

	var fields []schema.Field
	require.NoError(testInstance, store.ReadBlob(template.BlobFields, &fields))

	fieldIndex := map[string]schema.Field{}
	for _, field := range fields {
		fieldIndex[field.Collection+"/"+field.Field] = field
	}

	require.Contains(testInstance, fieldIndex, "articles/id")
	// Custom fields layered onto system collections survive extraction.
	require.Contains(testInstance, fieldIndex, "directus_users/department")
	// System-managed fields of system collections do not.
	require.NotContains(testInstance, fieldIndex, "directus_users/email")
	require.NotContains(testInstance, fieldIndex, "directus_activity/action")

	for indexKey, field := range fieldIndex {
		require.NotContains(testInstance, field.Meta, "id", "field %s retained its surrogate meta identifier", indexKey)
	}
}

func TestRelationExtractionFiltersSystemAndExtensionEdges(testInstance *testing.T) {
	testInstance.Parallel()

	stub := buildSourceStub()
	service, store := newExtractService(testInstance, stub)

	flags := capabilities.Defaults()
	flags.ExcludeExtensionCollections = true

	require.NoError(testInstance, service.Execute(context.Background(), flags))

	var relations []schema.Relation
	require.NoError(testInstance, store.ReadBlob(template.BlobRelations, &relations))

	identities := schema.RelationIdentitySet(relations)
	require.Contains(testInstance, identities, stub.relations[0].IdentityKey())
	// Relation on a retained custom system field survives.
	require.Contains(testInstance, identities, stub.relations[1].IdentityKey())
	// System-managed system relation and extension-owned relation are dropped.
	require.NotContains(testInstance, identities, stub.relations[2].IdentityKey())
	require.NotContains(testInstance, identities, stub.relations[3].IdentityKey())
}

func TestUserExtractionScrubsSecrets(testInstance *testing.T) {
	testInstance.Parallel()

	service, store := newExtractService(testInstance, buildSourceStub())

	require.NoError(testInstance, service.Execute(context.Background(), capabilities.Defaults()))

	var users []schema.Record
	require.NoError(testInstance, store.ReadBlob(template.BlobUsers, &users))
	require.Len(testInstance, users, 1)

	require.Equal(testInstance, "ada@example.com", users[0]["email"])
	require.NotContains(testInstance, users[0], "password")
	require.NotContains(testInstance, users[0], "token")
	require.NotContains(testInstance, users[0], "tfa_secret")
}

func TestContentFailureIsIsolatedPerCollection(testInstance *testing.T) {
	testInstance.Parallel()

	stub := buildSourceStub()
	stub.collections = append(stub.collections, schema.Collection{
		Collection: brokenCollectionNameConstant,
		Schema:     map[string]any{"name": brokenCollectionNameConstant},
	})
	stub.itemFailures = map[string]error{brokenCollectionNameConstant: errors.New("read timeout")}

	service, store := newExtractService(testInstance, stub)

	require.NoError(testInstance, service.Execute(context.Background(), capabilities.Defaults()))

	_, brokenPresent, brokenError := store.ReadContentBlob(brokenCollectionNameConstant)
	require.NoError(testInstance, brokenError)
	require.False(testInstance, brokenPresent)

	_, articlesPresent, articlesError := store.ReadContentBlob(articlesCollectionNameConstant)
	require.NoError(testInstance, articlesError)
	require.True(testInstance, articlesPresent)
}
