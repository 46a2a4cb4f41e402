package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const homeShortcutPrefixConstant = "~"

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander rewrites leading "~" path shortcuts to the user's home
// directory. The home lookup runs at most once per expander.
type HomeExpander struct {
	lookupHomeDirectory func() (string, error)
}

// NewHomeExpander builds an expander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider builds an expander with a custom home lookup.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{lookupHomeDirectory: sync.OnceValues(provider)}
}

// Expand resolves "~" and "~/..." paths against the user's home directory.
// Paths without the shortcut, paths like "~user/...", and shortcuts that
// cannot be resolved come back unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutPrefixConstant) {
		return candidatePath
	}

	homeDirectory, lookupError := expander.lookupHomeDirectory()
	if lookupError != nil || len(homeDirectory) == 0 {
		return candidatePath
	}

	remainder := candidatePath[len(homeShortcutPrefixConstant):]
	if len(remainder) == 0 {
		return homeDirectory
	}
	if remainder[0] == '/' || remainder[0] == os.PathSeparator {
		return filepath.Join(homeDirectory, remainder[1:])
	}
	return candidatePath
}
