// Package directus implements the authenticated REST client used to read
// entities from a source instance and upsert them into a target instance.
package directus
