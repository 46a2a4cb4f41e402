package schema

import "strings"

const (
	// SystemCollectionPrefix marks collections owned by the Directus core; they are never migrated as user data.
	SystemCollectionPrefix = "directus_"
	// ExtensionGroupName is the meta group value marking collections whose lifecycle belongs to an installed extension.
	ExtensionGroupName     = "extensions"
)

// CollectionMeta captures the meta block persisted alongside a collection.
type CollectionMeta struct {
	Group     string `json:"group,omitempty"`
	Singleton bool   `json:"singleton,omitempty"`
	System    bool   `json:"system,omitempty"`
}

// Collection describes a named entity type in the Directus meta-model.
type Collection struct {
	Collection string          `json:"collection"`
	Meta       *CollectionMeta `json:"meta,omitempty"`
	Schema     map[string]any  `json:"schema,omitempty"`
}

// IsSystem reports whether the collection name carries the reserved system prefix.
func (collection Collection) IsSystem() bool {
	return IsSystemCollectionName(collection.Collection)
}

// IsSingleton reports whether the collection holds exactly one configuration record.
func (collection Collection) IsSingleton() bool {
	return collection.Meta != nil && collection.Meta.Singleton
}

// IsExtensionOwned reports whether the collection belongs to the extension meta group.
func (collection Collection) IsExtensionOwned() bool {
	return collection.Meta != nil && collection.Meta.Group == ExtensionGroupName
}

// HasSchema reports whether the collection is backed by a database table.
// Folder-style grouping collections carry no schema block and hold no content.
func (collection Collection) HasSchema() bool {
	return collection.Schema != nil
}

// IsSystemCollectionName reports whether a collection name carries the reserved system prefix.
func IsSystemCollectionName(collectionName string) bool {
	return strings.HasPrefix(collectionName, SystemCollectionPrefix)
}

// FilterCollections drops system collections and, when requested, extension-owned collections.
func FilterCollections(collections []Collection, excludeExtensionOwned bool) []Collection {
	filtered := make([]Collection, 0, len(collections))
	for _, candidate := range collections {
		if candidate.IsSystem() {
			continue
		}
		if excludeExtensionOwned && candidate.IsExtensionOwned() {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}

// CollectionNames builds a membership set over collection names.
func CollectionNames(collections []Collection) map[string]struct{} {
	names := make(map[string]struct{}, len(collections))
	for _, candidate := range collections {
		names[candidate.Collection] = struct{}{}
	}
	return names
}

// ExtensionOwnedNames builds a membership set over extension-owned collection names.
func ExtensionOwnedNames(collections []Collection) map[string]struct{} {
	names := make(map[string]struct{})
	for _, candidate := range collections {
		if candidate.IsExtensionOwned() {
			names[candidate.Collection] = struct{}{}
		}
	}
	return names
}
