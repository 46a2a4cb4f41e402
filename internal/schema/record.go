package schema

import "fmt"

const (
	// AuditFieldUserCreated references the account that created a row on the source instance.
	AuditFieldUserCreated = "user_created"
	// AuditFieldUserUpdated references the account that last updated a row on the source instance.
	AuditFieldUserUpdated = "user_updated"
)

// Record is a dynamically shaped row keyed by field name. Collection schemas
// are unknown at build time, so required-field validation happens at runtime
// against the extracted field set.
type Record map[string]any

// PrimaryKeyValue extracts the value stored under the primary-key column.
func (record Record) PrimaryKeyValue(primaryKeyField string) (any, bool) {
	value, present := record[primaryKeyField]
	return value, present
}

// WithoutAuditFields returns a copy of the record with the instance-specific
// user_created and user_updated references removed.
func (record Record) WithoutAuditFields() Record {
	stripped := make(Record, len(record))
	for fieldName, fieldValue := range record {
		if fieldName == AuditFieldUserCreated || fieldName == AuditFieldUserUpdated {
			continue
		}
		stripped[fieldName] = fieldValue
	}
	return stripped
}

// KeyString normalizes a primary-key value for set membership comparisons.
// JSON decoding yields float64 for numeric keys on both sides of a diff, so
// formatting the dynamic value is stable across source and target.
func KeyString(value any) string {
	return fmt.Sprintf("%v", value)
}

// StripAuditFields removes audit references from every record in the batch.
func StripAuditFields(records []Record) []Record {
	stripped := make([]Record, 0, len(records))
	for _, record := range records {
		stripped = append(stripped, record.WithoutAuditFields())
	}
	return stripped
}
