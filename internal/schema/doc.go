// Package schema models the Directus meta-model entities carried by templates:
// collections, fields, relations, and dynamically shaped content records.
package schema
