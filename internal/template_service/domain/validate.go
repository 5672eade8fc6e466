package domain

import "fmt"

// maxVariablesBeforeWarning is the placeholder count above which validation
// emits a too_many_variables warning. Excessive substitutions degrade render
// and preview latency but do not block saving.
const maxVariablesBeforeWarning = 20

// ValidateTemplate checks the structural completeness of a template's content
// against its declared type. Invoked on create and on any update that changes
// content; rendering performs its own narrower variable-presence check.
func ValidateTemplate(tpl *MessageTemplate) ValidationResult {
	result := ValidationResult{
		Errors:   []ValidationIssue{},
		Warnings: []ValidationIssue{},
	}

	addError := func(field, code, message string) {
		result.Errors = append(result.Errors, ValidationIssue{Field: field, Code: code, Message: message})
	}

	if tpl.Name == "" {
		addError("name", "required", "template name is required")
	}
	if !tpl.Type.IsValid() {
		addError("type", "invalid", fmt.Sprintf("unknown template type %q", tpl.Type))
	}

	if tpl.Content.IsEmpty() {
		addError("content", "required", "template content is required")
		// Without content there is nothing further to check structurally.
		result.IsValid = len(result.Errors) == 0
		return result
	}

	switch tpl.Type {
	case TemplateTypeText:
		if tpl.Content.Text == nil || tpl.Content.Text.Text == "" {
			addError("content.text", "required", "body text is required for text templates")
		}
	case TemplateTypeMedia:
		if tpl.Content.Media == nil || tpl.Content.Media.MediaURL == "" {
			addError("content.media_url", "required", "media URL is required for media templates")
		}
		if tpl.Content.Media == nil || tpl.Content.Media.MediaType == "" {
			addError("content.media_type", "required", "media type is required for media templates")
		}
	case TemplateTypeInteractive:
		if tpl.Content.Interactive == nil || tpl.Content.Interactive.Body.Text == "" {
			addError("content.body.text", "required", "body text is required for interactive templates")
		}
	case TemplateTypeChannel:
		if tpl.Content.Channel == nil || tpl.Content.Channel.Language == "" {
			addError("content.language", "required", "language is required for channel templates")
		}
	}

	if count := len(ExtractVariables(tpl.Content)); count > maxVariablesBeforeWarning {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Field:   "content",
			Code:    "too_many_variables",
			Message: fmt.Sprintf("template declares %d variables; more than %d degrades render performance", count, maxVariablesBeforeWarning),
		})
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
