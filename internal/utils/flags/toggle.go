package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueValueConstant        = "true"
	toggleFalseValueConstant       = "false"
	toggleTypeNameConstant         = "bool"
	toggleInvalidValueTemplate     = "invalid toggle value %q"
	toggleEnabledUsagePlaceholder  = "<YES|no>"
	toggleDisabledUsagePlaceholder = "<yes|NO>"
	toggleUsageBareTemplate        = "`%s`"
	toggleUsageDescribedTemplate   = "`%s` %s"
)

// toggleLiteralValues maps every accepted spelling to its boolean meaning.
var toggleLiteralValues = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "t": true, "y": true,
	"false": false, "no": false, "off": false, "0": false, "f": false, "n": false,
}

var (
	registeredToggleGuard      sync.RWMutex
	registeredToggleNames      = map[string]struct{}{}
	registeredToggleShorthands = map[string]struct{}{}
)

// AddToggleFlag registers name on flagSet as a yes/no style boolean. The flag
// accepts the usual boolean spellings (yes/no, on/off, 1/0) in any case and
// treats a bare --name as true.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	if target != nil {
		*target = defaultValue
	}
	value := &toggleValue{enabled: defaultValue, target: target}

	if len(shorthand) > 0 {
		flagSet.VarP(value, name, shorthand, usage)
	} else {
		flagSet.Var(value, name, usage)
	}

	registeredFlag := flagSet.Lookup(name)
	if registeredFlag == nil {
		return
	}
	registeredFlag.NoOptDefVal = toggleTrueValueConstant
	registeredFlag.Usage = toggleUsage(usage, defaultValue)

	registeredToggleGuard.Lock()
	registeredToggleNames[name] = struct{}{}
	if len(shorthand) > 0 {
		registeredToggleShorthands[shorthand] = struct{}{}
	}
	registeredToggleGuard.Unlock()
}

// NormalizeToggleArguments glues detached toggle values to their flag, turning
// "--content no" into "--content=no", so pflag does not treat the value as a
// positional argument. Arguments after a bare "--" pass through untouched.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		currentArgument := arguments[argumentIndex]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[argumentIndex:]...)
			break
		}

		if !referencesRegisteredToggle(currentArgument) || strings.Contains(currentArgument, "=") {
			normalized = append(normalized, currentArgument)
			continue
		}

		if argumentIndex+1 < len(arguments) && !strings.HasPrefix(arguments[argumentIndex+1], "-") {
			normalized = append(normalized, currentArgument+"="+arguments[argumentIndex+1])
			argumentIndex++
			continue
		}

		normalized = append(normalized, currentArgument)
	}

	return normalized
}

type toggleValue struct {
	enabled bool
	target  *bool
}

func (value *toggleValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		normalizedValue = toggleTrueValueConstant
	}

	parsedValue, recognized := toggleLiteralValues[normalizedValue]
	if !recognized {
		return fmt.Errorf(toggleInvalidValueTemplate, rawValue)
	}

	value.enabled = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}
	return nil
}

func (value *toggleValue) String() string {
	if value != nil && value.enabled {
		return toggleTrueValueConstant
	}
	return toggleFalseValueConstant
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}

func toggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDisabledUsagePlaceholder
	if defaultValue {
		placeholder = toggleEnabledUsagePlaceholder
	}
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(toggleUsageBareTemplate, placeholder)
	}
	return fmt.Sprintf(toggleUsageDescribedTemplate, placeholder, trimmedDescription)
}

func referencesRegisteredToggle(argument string) bool {
	if strings.HasPrefix(argument, "--") {
		flagName := flagToken(argument[2:])
		if len(flagName) == 0 {
			return false
		}
		registeredToggleGuard.RLock()
		defer registeredToggleGuard.RUnlock()
		_, registered := registeredToggleNames[flagName]
		return registered
	}

	if strings.HasPrefix(argument, "-") {
		shorthand := flagToken(argument[1:])
		if len(shorthand) != 1 {
			return false
		}
		registeredToggleGuard.RLock()
		defer registeredToggleGuard.RUnlock()
		_, registered := registeredToggleShorthands[shorthand]
		return registered
	}

	return false
}

func flagToken(argument string) string {
	if equalsIndex := strings.Index(argument, "="); equalsIndex >= 0 {
		return argument[:equalsIndex]
	}
	return argument
}
