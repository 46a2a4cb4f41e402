// Package capabilities defines the boolean switch surface shared by the
// extract and apply pipelines.
package capabilities

// Flags enables or disables entity families for one run. Every family
// defaults to enabled; callers opt out explicitly.
type Flags struct {
	Schema                      bool `mapstructure:"schema"`
	Files                       bool `mapstructure:"files"`
	Permissions                 bool `mapstructure:"permissions"`
	Users                       bool `mapstructure:"users"`
	Settings                    bool `mapstructure:"settings"`
	Flows                       bool `mapstructure:"flows"`
	Dashboards                  bool `mapstructure:"dashboards"`
	Extensions                  bool `mapstructure:"extensions"`
	Content                     bool `mapstructure:"content"`
	ExcludeExtensionCollections bool `mapstructure:"exclude_extension_collections"`
}

// Defaults returns the flag set with every entity family enabled.
func Defaults() Flags {
	return Flags{
		Schema:      true,
		Files:       true,
		Permissions: true,
		Users:       true,
		Settings:    true,
		Flows:       true,
		Dashboards:  true,
		Extensions:  true,
		Content:     true,
	}
}
