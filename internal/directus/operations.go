package directus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/stencilhq/stencil/internal/schema"
)

const (
	collectionsPathConstant       = "/collections"
	fieldsPathConstant            = "/fields"
	fieldsCollectionPathTemplate  = "/fields/%s"
	fieldPathTemplateConstant     = "/fields/%s/%s"
	relationsPathConstant         = "/relations"
	itemsPathTemplateConstant     = "/items/%s"
	recordsPathTemplateConstant   = "/%s"
	settingsPathConstant          = "/settings"
	extensionsPathConstant        = "/extensions"
	extensionPathTemplateConstant = "/extensions/%s"
	serverPingPathConstant        = "/server/ping"

	limitQueryParameterConstant  = "limit"
	pageQueryParameterConstant   = "page"
	fieldsQueryParameterConstant = "fields"
	unlimitedQueryValueConstant  = "-1"
	fieldsQuerySeparatorConstant = ","
)

// ItemQuery narrows a read-items request to a page and a field projection.
// A zero Limit requests everything the instance will return in one response.
type ItemQuery struct {
	Fields []string
	Limit  int
	Page   int
}

func (query ItemQuery) values() url.Values {
	queryValues := url.Values{}
	if query.Limit > 0 {
		queryValues.Set(limitQueryParameterConstant, strconv.Itoa(query.Limit))
	} else {
		queryValues.Set(limitQueryParameterConstant, unlimitedQueryValueConstant)
	}
	if query.Page > 0 {
		queryValues.Set(pageQueryParameterConstant, strconv.Itoa(query.Page))
	}
	if len(query.Fields) > 0 {
		queryValues.Set(fieldsQueryParameterConstant, strings.Join(query.Fields, fieldsQuerySeparatorConstant))
	}
	return queryValues
}

// ListCollections reads every collection definition, system ones included.
func (client *Client) ListCollections(executionContext context.Context) ([]schema.Collection, error) {
	var collections []schema.Collection
	requestError := client.request(executionContext, OperationReadCollections, "", http.MethodGet, collectionsPathConstant, nil, nil, &collections)
	return collections, requestError
}

// CreateCollection creates one collection definition on the target.
func (client *Client) CreateCollection(executionContext context.Context, collection schema.Collection) error {
	return client.request(executionContext, OperationCreateCollection, collection.Collection, http.MethodPost, collectionsPathConstant, nil, collection, nil)
}

// ListFields reads every field definition across all collections.
func (client *Client) ListFields(executionContext context.Context) ([]schema.Field, error) {
	var fields []schema.Field
	requestError := client.request(executionContext, OperationReadFields, "", http.MethodGet, fieldsPathConstant, nil, nil, &fields)
	return fields, requestError
}

// CreateField creates one field on its collection.
func (client *Client) CreateField(executionContext context.Context, field schema.Field) error {
	requestPath := fmt.Sprintf(fieldsCollectionPathTemplate, field.Collection)
	return client.request(executionContext, OperationCreateField, field.Collection, http.MethodPost, requestPath, nil, field, nil)
}

// UpdateField patches one field definition in place.
func (client *Client) UpdateField(executionContext context.Context, field schema.Field) error {
	requestPath := fmt.Sprintf(fieldPathTemplateConstant, field.Collection, field.Field)
	return client.request(executionContext, OperationUpdateField, field.Collection, http.MethodPatch, requestPath, nil, field, nil)
}

// ListRelations reads every relation definition.
func (client *Client) ListRelations(executionContext context.Context) ([]schema.Relation, error) {
	var relations []schema.Relation
	requestError := client.request(executionContext, OperationReadRelations, "", http.MethodGet, relationsPathConstant, nil, nil, &relations)
	return relations, requestError
}

// CreateRelation creates one relation. Callers submit relations sequentially:
// the relation engine runs consistency checks that conflict under parallel writes.
func (client *Client) CreateRelation(executionContext context.Context, relation schema.Relation) error {
	return client.request(executionContext, OperationCreateRelation, relation.Collection, http.MethodPost, relationsPathConstant, nil, relation, nil)
}

// ListItems reads content records from one collection.
func (client *Client) ListItems(executionContext context.Context, collectionName string, query ItemQuery) ([]schema.Record, error) {
	var records []schema.Record
	requestPath := fmt.Sprintf(itemsPathTemplateConstant, collectionName)
	requestError := client.request(executionContext, OperationReadItems, collectionName, http.MethodGet, requestPath, query.values(), nil, &records)
	return records, requestError
}

// ReadSingletonItem reads the single record held by a singleton collection.
func (client *Client) ReadSingletonItem(executionContext context.Context, collectionName string) (schema.Record, error) {
	var record schema.Record
	requestPath := fmt.Sprintf(itemsPathTemplateConstant, collectionName)
	requestError := client.request(executionContext, OperationReadItems, collectionName, http.MethodGet, requestPath, nil, nil, &record)
	return record, requestError
}

// CreateItems creates a batch of content records in one collection.
func (client *Client) CreateItems(executionContext context.Context, collectionName string, records []schema.Record) error {
	requestPath := fmt.Sprintf(itemsPathTemplateConstant, collectionName)
	return client.request(executionContext, OperationCreateItems, collectionName, http.MethodPost, requestPath, nil, records, nil)
}

// UpdateItems updates a batch of existing content records in one collection.
func (client *Client) UpdateItems(executionContext context.Context, collectionName string, records []schema.Record) error {
	requestPath := fmt.Sprintf(itemsPathTemplateConstant, collectionName)
	return client.request(executionContext, OperationUpdateItemsBatch, collectionName, http.MethodPatch, requestPath, nil, records, nil)
}

// UpdateSingleton replaces the single record of a singleton collection.
func (client *Client) UpdateSingleton(executionContext context.Context, collectionName string, record schema.Record) error {
	requestPath := fmt.Sprintf(itemsPathTemplateConstant, collectionName)
	return client.request(executionContext, OperationUpdateSingleton, collectionName, http.MethodPatch, requestPath, nil, record, nil)
}

// ListRecords reads every record behind a system endpoint such as roles or flows.
func (client *Client) ListRecords(executionContext context.Context, endpointName string) ([]schema.Record, error) {
	var records []schema.Record
	requestPath := fmt.Sprintf(recordsPathTemplateConstant, endpointName)
	queryValues := url.Values{limitQueryParameterConstant: []string{unlimitedQueryValueConstant}}
	requestError := client.request(executionContext, OperationReadRecords, endpointName, http.MethodGet, requestPath, queryValues, nil, &records)
	return records, requestError
}

// CreateRecord creates one record behind a system endpoint.
func (client *Client) CreateRecord(executionContext context.Context, endpointName string, record schema.Record) error {
	requestPath := fmt.Sprintf(recordsPathTemplateConstant, endpointName)
	return client.request(executionContext, OperationCreateRecord, endpointName, http.MethodPost, requestPath, nil, record, nil)
}

// ReadSettings reads the settings singleton.
func (client *Client) ReadSettings(executionContext context.Context) (schema.Record, error) {
	var settings schema.Record
	requestError := client.request(executionContext, OperationReadSettings, "", http.MethodGet, settingsPathConstant, nil, nil, &settings)
	return settings, requestError
}

// UpdateSettings patches the settings singleton.
func (client *Client) UpdateSettings(executionContext context.Context, settings schema.Record) error {
	return client.request(executionContext, OperationUpdateSettings, "", http.MethodPatch, settingsPathConstant, nil, settings, nil)
}

// ListExtensions reads the installed extensions and their enabled state.
func (client *Client) ListExtensions(executionContext context.Context) ([]schema.Record, error) {
	var extensions []schema.Record
	requestError := client.request(executionContext, OperationReadExtensions, "", http.MethodGet, extensionsPathConstant, nil, nil, &extensions)
	return extensions, requestError
}

// UpdateExtension patches the meta block of one installed extension.
func (client *Client) UpdateExtension(executionContext context.Context, extensionIdentifier string, meta schema.Record) error {
	requestPath := fmt.Sprintf(extensionPathTemplateConstant, extensionIdentifier)
	payload := schema.Record{"meta": meta}
	return client.request(executionContext, OperationUpdateExtension, "", http.MethodPatch, requestPath, nil, payload, nil)
}

// Ping probes instance readiness.
func (client *Client) Ping(executionContext context.Context) error {
	return client.request(executionContext, OperationPingServer, "", http.MethodGet, serverPingPathConstant, nil, nil, nil)
}
