// Package template persists extracted entities as named JSON blobs inside a
// template root directory and reads them back during apply runs.
package template
