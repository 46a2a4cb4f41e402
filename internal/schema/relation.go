package schema

import "strings"

const (
	relationIdentitySeparatorConstant = "/"
	relationMetaIdentifierKeyConstant = "id"
)

// Relation describes a directional foreign-key edge between collections.
// Identity is the (collection, field, related_collection) triple; the meta
// identifier is a surrogate assigned per instance and never travels.
type Relation struct {
	Collection        string         `json:"collection"`
	Field             string         `json:"field"`
	RelatedCollection string         `json:"related_collection,omitempty"`
	Meta              map[string]any `json:"meta,omitempty"`
	Schema            map[string]any `json:"schema,omitempty"`
}

// IdentityKey joins the identifying triple into a comparable string.
func (relation Relation) IdentityKey() string {
	return strings.Join([]string{relation.Collection, relation.Field, relation.RelatedCollection}, relationIdentitySeparatorConstant)
}

// WithoutMetaIdentifier returns a copy of the relation whose surrogate meta
// identifier is nulled so the target instance assigns its own.
func (relation Relation) WithoutMetaIdentifier() Relation {
	duplicated := relation
	if relation.Meta == nil {
		return duplicated
	}
	duplicatedMeta := make(map[string]any, len(relation.Meta))
	for metaKey, metaValue := range relation.Meta {
		duplicatedMeta[metaKey] = metaValue
	}
	duplicatedMeta[relationMetaIdentifierKeyConstant] = nil
	duplicated.Meta = duplicatedMeta
	return duplicated
}

// RelationIdentitySet builds a membership set over relation identity keys.
func RelationIdentitySet(relations []Relation) map[string]struct{} {
	identities := make(map[string]struct{}, len(relations))
	for _, candidate := range relations {
		identities[candidate.IdentityKey()] = struct{}{}
	}
	return identities
}
