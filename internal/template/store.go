package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stencilhq/stencil/internal/schema"
)

// Well-known blob names shared by the extract and apply pipelines.
const (
	BlobCollections  = "collections"
	BlobFields       = "fields"
	BlobRelations    = "relations"
	BlobRoles        = "roles"
	BlobPermissions  = "permissions"
	BlobPolicies     = "policies"
	BlobAccess       = "access"
	BlobUsers        = "users"
	BlobFolders      = "folders"
	BlobFiles        = "files"
	BlobFlows        = "flows"
	BlobOperations   = "operations"
	BlobDashboards   = "dashboards"
	BlobPanels       = "panels"
	BlobSettings     = "settings"
	BlobTranslations = "translations"
	BlobPresets      = "presets"
	BlobExtensions   = "extensions"
	BlobManifest     = "manifest"
)

const (
	blobFileExtensionConstant          = ".json"
	contentDirectoryNameConstant       = "content"
	assetDirectoryNameConstant         = "assets"
	blobDirectoryPermissionsConstant   = 0o755
	blobFilePermissionsConstant        = 0o644
	rootDirectoryRequiredMessage       = "template root directory is required"
	blobEncodeErrorTemplateConstant    = "unable to encode blob %s: %w"
	blobWriteErrorTemplateConstant     = "unable to write blob %s: %w"
	blobReadErrorTemplateConstant      = "unable to read blob %s: %w"
	blobDecodeErrorTemplateConstant    = "unable to decode blob %s: %w"
	blobDirectoryErrorTemplateConstant = "unable to create template directory %s: %w"
	assetWriteErrorTemplateConstant    = "unable to write asset %s: %w"
	assetOpenErrorTemplateConstant     = "unable to open asset %s: %w"
	blobIndentConstant                 = "  "
	contentBlobNameTemplateConstant    = contentDirectoryNameConstant + "/%s"
	missingBlobErrorTemplateConstant   = "template blob %s is missing"
)

var errRootDirectoryRequired = errors.New(rootDirectoryRequiredMessage)

// Store reads and writes named JSON blobs beneath a template root directory.
type Store struct {
	rootDirectory string
}

// NewStore constructs a blob store rooted at the provided directory.
func NewStore(rootDirectory string) (*Store, error) {
	trimmedRoot := strings.TrimSpace(rootDirectory)
	if len(trimmedRoot) == 0 {
		return nil, errRootDirectoryRequired
	}
	return &Store{rootDirectory: filepath.Clean(trimmedRoot)}, nil
}

// RootDirectory exposes the template root path.
func (store *Store) RootDirectory() string {
	return store.rootDirectory
}

// WriteBlob serializes the value as indented JSON under the blob name.
func (store *Store) WriteBlob(blobName string, value any) error {
	encoded, encodeError := json.MarshalIndent(value, "", blobIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(blobEncodeErrorTemplateConstant, blobName, encodeError)
	}

	blobPath := store.blobPath(blobName)
	if directoryError := os.MkdirAll(filepath.Dir(blobPath), blobDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(blobDirectoryErrorTemplateConstant, filepath.Dir(blobPath), directoryError)
	}
	if writeError := os.WriteFile(blobPath, encoded, blobFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(blobWriteErrorTemplateConstant, blobName, writeError)
	}
	return nil
}

// ReadBlob decodes the named blob into target. A missing blob is an error.
func (store *Store) ReadBlob(blobName string, target any) error {
	present, readError := store.ReadBlobAllowMissing(blobName, target)
	if readError != nil {
		return readError
	}
	if !present {
		return fmt.Errorf(missingBlobErrorTemplateConstant, blobName)
	}
	return nil
}

// ReadBlobAllowMissing decodes the named blob into target when it exists.
// Absence is reported through the boolean, distinguishing the expected
// not-exported case from a true read failure.
func (store *Store) ReadBlobAllowMissing(blobName string, target any) (bool, error) {
	encoded, readError := os.ReadFile(store.blobPath(blobName))
	if readError != nil {
		if os.IsNotExist(readError) {
			return false, nil
		}
		return false, fmt.Errorf(blobReadErrorTemplateConstant, blobName, readError)
	}
	if decodeError := json.Unmarshal(encoded, target); decodeError != nil {
		return false, fmt.Errorf(blobDecodeErrorTemplateConstant, blobName, decodeError)
	}
	return true, nil
}

// HasBlobs reports whether every named blob exists in the template root.
func (store *Store) HasBlobs(blobNames ...string) bool {
	for _, blobName := range blobNames {
		if _, statError := os.Stat(store.blobPath(blobName)); statError != nil {
			return false
		}
	}
	return true
}

// ContentBlobName builds the per-collection blob name under the content namespace.
func ContentBlobName(collectionName string) string {
	return fmt.Sprintf(contentBlobNameTemplateConstant, collectionName)
}

// WriteContentBlob persists the records extracted for one collection.
func (store *Store) WriteContentBlob(collectionName string, records []schema.Record) error {
	return store.WriteBlob(ContentBlobName(collectionName), records)
}

// ReadContentBlob loads the records extracted for one collection. Absence of
// the blob means the collection was not exported and is reported through the
// boolean rather than an error.
func (store *Store) ReadContentBlob(collectionName string) ([]schema.Record, bool, error) {
	var records []schema.Record
	present, readError := store.ReadBlobAllowMissing(ContentBlobName(collectionName), &records)
	if readError != nil {
		return nil, false, readError
	}
	return records, present, nil
}

// WriteAsset stores the binary contents of a downloaded file asset.
func (store *Store) WriteAsset(fileIdentifier string, contents io.Reader) error {
	assetPath := store.assetPath(fileIdentifier)
	if directoryError := os.MkdirAll(filepath.Dir(assetPath), blobDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(blobDirectoryErrorTemplateConstant, filepath.Dir(assetPath), directoryError)
	}

	assetFile, createError := os.Create(assetPath)
	if createError != nil {
		return fmt.Errorf(assetWriteErrorTemplateConstant, fileIdentifier, createError)
	}
	defer assetFile.Close()

	if _, copyError := io.Copy(assetFile, contents); copyError != nil {
		return fmt.Errorf(assetWriteErrorTemplateConstant, fileIdentifier, copyError)
	}
	return nil
}

// OpenAsset opens a stored binary asset for upload.
func (store *Store) OpenAsset(fileIdentifier string) (io.ReadCloser, error) {
	assetFile, openError := os.Open(store.assetPath(fileIdentifier))
	if openError != nil {
		return nil, fmt.Errorf(assetOpenErrorTemplateConstant, fileIdentifier, openError)
	}
	return assetFile, nil
}

// HasAsset reports whether a binary asset was captured for the file identifier.
func (store *Store) HasAsset(fileIdentifier string) bool {
	_, statError := os.Stat(store.assetPath(fileIdentifier))
	return statError == nil
}

func (store *Store) blobPath(blobName string) string {
	return filepath.Join(store.rootDirectory, filepath.FromSlash(blobName)+blobFileExtensionConstant)
}

func (store *Store) assetPath(fileIdentifier string) string {
	return filepath.Join(store.rootDirectory, assetDirectoryNameConstant, fileIdentifier)
}
