package schema

const (
	fieldMetaIdentifierKeyConstant = "id"
	fieldMetaSystemKeyConstant     = "system"
	fieldMetaRequiredKeyConstant   = "required"
	fieldSchemaPrimaryKeyConstant  = "is_primary_key"
)

// Field describes a single column of a collection. The meta block is nullable;
// an absent meta block means the field is managed by the Directus core.
type Field struct {
	Collection string         `json:"collection"`
	Field      string         `json:"field"`
	Type       string         `json:"type,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Schema     map[string]any `json:"schema,omitempty"`
}

// HasCustomMeta reports whether the field carries a meta block that is not system-managed.
// Custom fields layered onto system collections are recognized this way.
func (field Field) HasCustomMeta() bool {
	if field.Meta == nil {
		return false
	}
	systemFlag, _ := field.Meta[fieldMetaSystemKeyConstant].(bool)
	return !systemFlag
}

// IsPrimaryKey reports whether the field schema marks the column as the primary key.
func (field Field) IsPrimaryKey() bool {
	if field.Schema == nil {
		return false
	}
	primaryFlag, _ := field.Schema[fieldSchemaPrimaryKeyConstant].(bool)
	return primaryFlag
}

// IsRequired reports whether the field meta marks the column as required.
func (field Field) IsRequired() bool {
	if field.Meta == nil {
		return false
	}
	requiredFlag, _ := field.Meta[fieldMetaRequiredKeyConstant].(bool)
	return requiredFlag
}

// WithoutMetaIdentifier returns a copy of the field with the instance-specific
// surrogate meta identifier removed.
func (field Field) WithoutMetaIdentifier() Field {
	if field.Meta == nil {
		return field
	}
	duplicatedMeta := make(map[string]any, len(field.Meta))
	for metaKey, metaValue := range field.Meta {
		if metaKey == fieldMetaIdentifierKeyConstant {
			continue
		}
		duplicatedMeta[metaKey] = metaValue
	}
	duplicated := field
	duplicated.Meta = duplicatedMeta
	return duplicated
}

// WithRequired returns a copy of the field whose meta required flag is set to the provided value.
func (field Field) WithRequired(required bool) Field {
	duplicatedMeta := make(map[string]any, len(field.Meta)+1)
	for metaKey, metaValue := range field.Meta {
		duplicatedMeta[metaKey] = metaValue
	}
	duplicatedMeta[fieldMetaRequiredKeyConstant] = required
	duplicated := field
	duplicated.Meta = duplicatedMeta
	return duplicated
}

// PrimaryKeyField resolves the primary-key column name for a collection from a field set.
func PrimaryKeyField(fields []Field, collectionName string) (string, bool) {
	for _, candidate := range fields {
		if candidate.Collection != collectionName {
			continue
		}
		if candidate.IsPrimaryKey() {
			return candidate.Field, true
		}
	}
	return "", false
}
