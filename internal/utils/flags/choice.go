package flags

import (
	"fmt"
	"strings"
)

// FormatChoiceUsage renders a usage string for an enumerated flag. Choices are
// deduplicated case-insensitively and the default choice is uppercased so it
// stands out in help output.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))

	var placeholder strings.Builder
	placeholder.WriteString("<")
	listedChoices := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}

		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, alreadyListed := listedChoices[normalizedChoice]; alreadyListed {
			continue
		}
		listedChoices[normalizedChoice] = struct{}{}

		if len(listedChoices) > 1 {
			placeholder.WriteString("|")
		}
		if normalizedChoice == normalizedDefault {
			placeholder.WriteString(strings.ToUpper(trimmedChoice))
		} else {
			placeholder.WriteString(trimmedChoice)
		}
	}
	placeholder.WriteString(">")

	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf("`%s`", placeholder.String())
	}
	return fmt.Sprintf("`%s` %s", placeholder.String(), trimmedDescription)
}
