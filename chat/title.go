package chat

import "strings"

const titleMaxRunes = 30

// DeriveTitle turns the first message of a session into its title: newlines
// become spaces and text longer than 30 characters is cut with "...".
func DeriveTitle(content string) string {
	name := strings.ReplaceAll(content, "\r\n", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")

	if runes := []rune(name); len(runes) > titleMaxRunes {
		name = string(runes[:titleMaxRunes]) + "..."
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultTitle
	}
	return name
}
