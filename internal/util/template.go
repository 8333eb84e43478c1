package util

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderTemplate renders role instructions with Go template syntax. Instructions
// are prompt text for a model, not markup, so text/template is used and no
// escaping is applied.
func RenderTemplate(tmplStr string, data map[string]any) (string, error) {
	tmpl, err := template.New("instructions").Funcs(template.FuncMap{
		"default": func(defaultValue, value any) any {
			if value == nil || value == "" {
				return defaultValue
			}
			return value
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
	}).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parse instructions template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute instructions template: %w", err)
	}

	return sb.String(), nil
}
