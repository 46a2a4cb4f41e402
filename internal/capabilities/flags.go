package capabilities

import (
	"github.com/spf13/pflag"

	flagutils "github.com/stencilhq/stencil/internal/utils/flags"
)

// Capability flag names shared by the extract and apply commands.
const (
	SchemaFlagName                      = "schema"
	FilesFlagName                       = "files"
	PermissionsFlagName                 = "permissions"
	UsersFlagName                       = "users"
	SettingsFlagName                    = "settings"
	FlowsFlagName                       = "flows"
	DashboardsFlagName                  = "dashboards"
	ExtensionsFlagName                  = "extensions"
	ContentFlagName                     = "content"
	ExcludeExtensionCollectionsFlagName = "exclude-extension-collections"
)

const (
	schemaFlagUsageConstant            = "Include collections, fields, and relations."
	filesFlagUsageConstant             = "Include folders, file metadata, and binary assets."
	permissionsFlagUsageConstant       = "Include roles, permissions, policies, and access bindings."
	usersFlagUsageConstant             = "Include user accounts."
	settingsFlagUsageConstant          = "Include settings, translations, and presets."
	flowsFlagUsageConstant             = "Include flows and their operations."
	dashboardsFlagUsageConstant        = "Include dashboards and their panels."
	extensionsFlagUsageConstant        = "Include the installed extension inventory."
	contentFlagUsageConstant           = "Include collection content records."
	excludeExtensionsFlagUsageConstant = "Exclude collections owned by installed extensions."
)

// RegisterFlags adds the capability toggle flags to a flag set, binding each
// toggle to the corresponding field of target.
func RegisterFlags(flagSet *pflag.FlagSet, target *Flags) {
	flagutils.AddToggleFlag(flagSet, &target.Schema, SchemaFlagName, "", true, schemaFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Files, FilesFlagName, "", true, filesFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Permissions, PermissionsFlagName, "", true, permissionsFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Users, UsersFlagName, "", true, usersFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Settings, SettingsFlagName, "", true, settingsFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Flows, FlowsFlagName, "", true, flowsFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Dashboards, DashboardsFlagName, "", true, dashboardsFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Extensions, ExtensionsFlagName, "", true, extensionsFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.Content, ContentFlagName, "", true, contentFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, &target.ExcludeExtensionCollections, ExcludeExtensionCollectionsFlagName, "", false, excludeExtensionsFlagUsageConstant)
}

// ApplyChangedFlags copies every toggle the user explicitly set on the command
// line onto the configured flag set, leaving untouched toggles at their
// configured values.
func ApplyChangedFlags(flagSet *pflag.FlagSet, parsed Flags, configured Flags) Flags {
	resolved := configured
	if flagSet.Changed(SchemaFlagName) {
		resolved.Schema = parsed.Schema
	}
	if flagSet.Changed(FilesFlagName) {
		resolved.Files = parsed.Files
	}
	if flagSet.Changed(PermissionsFlagName) {
		resolved.Permissions = parsed.Permissions
	}
	if flagSet.Changed(UsersFlagName) {
		resolved.Users = parsed.Users
	}
	if flagSet.Changed(SettingsFlagName) {
		resolved.Settings = parsed.Settings
	}
	if flagSet.Changed(FlowsFlagName) {
		resolved.Flows = parsed.Flows
	}
	if flagSet.Changed(DashboardsFlagName) {
		resolved.Dashboards = parsed.Dashboards
	}
	if flagSet.Changed(ExtensionsFlagName) {
		resolved.Extensions = parsed.Extensions
	}
	if flagSet.Changed(ContentFlagName) {
		resolved.Content = parsed.Content
	}
	if flagSet.Changed(ExcludeExtensionCollectionsFlagName) {
		resolved.ExcludeExtensionCollections = parsed.ExcludeExtensionCollections
	}
	return resolved
}
