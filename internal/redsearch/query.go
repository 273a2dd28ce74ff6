package redsearch

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildQuery renders a base query plus modifiers into the upstream query
// syntax. An empty base query becomes the wildcard token. Modifiers are
// rendered in slice order and joined with " AND "; unknown keys pass through
// verbatim since the upstream modifier set is open-ended. Pure function.
func BuildQuery(base string, modifiers []Modifier) string {
	parts := make([]string, 0, len(modifiers)+1)
	if base == "" {
		parts = append(parts, "*")
	} else {
		parts = append(parts, base)
	}
	for _, m := range modifiers {
		parts = append(parts, m.render())
	}
	return strings.Join(parts, " AND ")
}

func (m Modifier) render() string {
	if b, ok := m.Value.(bool); ok {
		return m.Key + ":" + strconv.FormatBool(b)
	}
	val := fmt.Sprintf("%v", m.Value)
	// title and selftext values are phrase searches and get quoted.
	if m.Key == "title" || m.Key == "selftext" {
		return m.Key + `:"` + val + `"`
	}
	return m.Key + ":" + val
}
