package domain

import (
	"regexp"
	"strings"
)

// variablePattern matches {{name}} placeholders: two opening braces, one or
// more non-'}' characters, two closing braces. No nesting, no escaping.
var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ExtractVariables scans every text-bearing field of the content relevant to
// its populated branch and returns the deduplicated placeholder names in
// first-appearance order. It is total: malformed or empty content yields an
// empty slice, never an error. Callers wanting display order should sort.
func ExtractVariables(content TemplateContent) []string {
	var names []string
	seen := make(map[string]struct{})

	collect := func(s string) {
		for _, m := range variablePattern.FindAllStringSubmatch(s, -1) {
			name := trimmedVariableName(m[1])
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	switch {
	case content.Text != nil:
		collect(content.Text.Text)
		collect(content.Text.Caption)
	case content.Media != nil:
		// Media type and URL are structural; only the caption is templated.
		collect(content.Media.Caption)
	case content.Interactive != nil:
		if content.Interactive.Header != nil {
			collect(content.Interactive.Header.Text)
		}
		collect(content.Interactive.Body.Text)
		if content.Interactive.Footer != nil {
			collect(content.Interactive.Footer.Text)
		}
		// Option labels and ids are structural and never substituted,
		// so they contribute no variables.
	case content.Channel != nil:
		if content.Channel.Header != nil {
			collect(content.Channel.Header.Text)
		}
		collect(content.Channel.Body.Text)
		for _, comp := range content.Channel.Components {
			collect(comp.Text)
		}
	}

	return names
}

// trimmedVariableName normalizes a raw capture to its placeholder name.
func trimmedVariableName(raw string) string {
	return strings.TrimSpace(raw)
}

// substituteVariables replaces every placeholder in s with its value from
// vars. Placeholders without a matching key are left untouched; callers are
// expected to have checked completeness first.
func substituteVariables(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}
