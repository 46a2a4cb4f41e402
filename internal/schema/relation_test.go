package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stencilhq/stencil/internal/schema"
)

const testAuthorReferenceFieldName = "author"

func TestRelationIdentityKeyIgnoresMeta(testInstance *testing.T) {
	testInstance.Parallel()

	sourceRelation := schema.Relation{
		Collection:        testArticlesCollectionName,
		Field:             testAuthorReferenceFieldName,
		RelatedCollection: testAuthorsCollectionName,
		Meta:              map[string]any{"id": 7},
	}
	targetRelation := schema.Relation{
		Collection:        testArticlesCollectionName,
		Field:             testAuthorReferenceFieldName,
		RelatedCollection: testAuthorsCollectionName,
		Meta:              map[string]any{"id": 99},
	}

	require.Equal(testInstance, sourceRelation.IdentityKey(), targetRelation.IdentityKey())
}

func TestRelationWithoutMetaIdentifier(testInstance *testing.T) {
	testInstance.Parallel()

	relation := schema.Relation{
		Collection:        testArticlesCollectionName,
		Field:             testAuthorReferenceFieldName,
		RelatedCollection: testAuthorsCollectionName,
		Meta:              map[string]any{"id": 7, "one_field": "articles"},
	}

	stripped := relation.WithoutMetaIdentifier()

	require.Nil(testInstance, stripped.Meta["id"])
	require.Equal(testInstance, "articles", stripped.Meta["one_field"])
	require.Equal(testInstance, 7, relation.Meta["id"])
}

func TestRelationIdentitySet(testInstance *testing.T) {
	testInstance.Parallel()

	relations := []schema.Relation{
		{Collection: testArticlesCollectionName, Field: testAuthorReferenceFieldName, RelatedCollection: testAuthorsCollectionName},
		{Collection: testAuthorsCollectionName, Field: "featured_article", RelatedCollection: testArticlesCollectionName},
	}

	identities := schema.RelationIdentitySet(relations)
	require.Len(testInstance, identities, 2)
	require.Contains(testInstance, identities, relations[0].IdentityKey())
	require.Contains(testInstance, identities, relations[1].IdentityKey())
}
