package domain

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// DefaultMaxMessageBytes is the channel-message size ceiling used for
// preview warnings when the caller does not configure one.
const DefaultMaxMessageBytes = 4096

// PreviewOptions tunes preview generation.
type PreviewOptions struct {
	// MaxMessageBytes overrides the size-warning ceiling; zero means default.
	MaxMessageBytes int
	// Now fixes the clock used for synthesized dates and the GeneratedAt
	// stamp, keeping previews reproducible. Zero means time.Now().
	Now time.Time
}

// BuildPreview renders the template with sample data and derives a flattened
// preview string plus minimal markup. When sampleVars is empty, plausible
// values are synthesized per variable-name convention; synthesis is
// deterministic for a given variable set and clock.
func BuildPreview(tpl *MessageTemplate, sampleVars map[string]string, opts PreviewOptions) (*TemplatePreview, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ceiling := opts.MaxMessageBytes
	if ceiling <= 0 {
		ceiling = DefaultMaxMessageBytes
	}

	vars := sampleVars
	if len(vars) == 0 {
		vars = SynthesizeSampleVariables(ExtractVariables(tpl.Content), now)
	}

	content, size, err := RenderContent(tpl, vars)
	if err != nil {
		return nil, err
	}

	preview := &TemplatePreview{
		TemplateID:         tpl.ID,
		PreviewText:        flattenContent(content),
		PreviewHTML:        contentHTML(content),
		SampleVariables:    vars,
		Warnings:           []string{},
		EstimatedSizeBytes: size,
		GeneratedAt:        now,
	}

	if size > ceiling {
		preview.Warnings = append(preview.Warnings,
			fmt.Sprintf("rendered content is %d bytes, above the %d byte channel message limit", size, ceiling))
	}

	return preview, nil
}

// SynthesizeSampleVariables produces deterministic placeholder values keyed
// by common variable-name conventions. Unrecognized names fall back to a
// bracketed copy of the name itself, e.g. [account_balance].
func SynthesizeSampleVariables(names []string, now time.Time) map[string]string {
	vars := make(map[string]string, len(names))
	for _, name := range names {
		vars[name] = sampleValueFor(name, now)
	}
	return vars
}

func sampleValueFor(name string, now time.Time) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "name" || lower == "first_name" || lower == "firstname" ||
		strings.HasSuffix(lower, "_name") && strings.Contains(lower, "first"):
		return "Maria"
	case lower == "last_name" || lower == "lastname":
		return "Silva"
	case strings.HasSuffix(lower, "_name") || lower == "customer" || lower == "contact":
		return "Maria Silva"
	case lower == "company":
		return "Acme Ltda"
	case lower == "email":
		return "maria@example.com"
	case lower == "phone" || lower == "phone_number":
		return "+55 11 91234-5678"
	case lower == "date" || strings.HasSuffix(lower, "_date") || strings.HasPrefix(lower, "date_"):
		return now.Format("02/01/2006")
	case lower == "time" || strings.HasSuffix(lower, "_time"):
		return now.Format("15:04")
	case lower == "order_id" || strings.HasSuffix(lower, "_id") || lower == "code":
		return "A123"
	default:
		return "[" + name + "]"
	}
}

// flattenContent derives a single human-readable string from rendered content.
func flattenContent(content TemplateContent) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	switch {
	case content.Text != nil:
		add(content.Text.Text)
		add(content.Text.Caption)
	case content.Media != nil:
		add(fmt.Sprintf("[%s] %s", content.Media.MediaType, content.Media.MediaURL))
		add(content.Media.Caption)
	case content.Interactive != nil:
		if content.Interactive.Header != nil {
			add(content.Interactive.Header.Text)
		}
		add(content.Interactive.Body.Text)
		if content.Interactive.Footer != nil {
			add(content.Interactive.Footer.Text)
		}
		for _, opt := range content.Interactive.Options {
			add("• " + opt.Label)
		}
	case content.Channel != nil:
		if content.Channel.Header != nil {
			add(content.Channel.Header.Text)
		}
		add(content.Channel.Body.Text)
		for _, comp := range content.Channel.Components {
			add(comp.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// contentHTML derives minimal escaped markup for authoring-time display.
func contentHTML(content TemplateContent) string {
	var b strings.Builder
	p := func(s string) {
		if s != "" {
			b.WriteString("<p>" + html.EscapeString(s) + "</p>")
		}
	}
	strong := func(s string) {
		if s != "" {
			b.WriteString("<p><strong>" + html.EscapeString(s) + "</strong></p>")
		}
	}

	switch {
	case content.Text != nil:
		p(content.Text.Text)
		p(content.Text.Caption)
	case content.Media != nil:
		b.WriteString(fmt.Sprintf("<p><em>%s</em></p>", html.EscapeString(content.Media.MediaURL)))
		p(content.Media.Caption)
	case content.Interactive != nil:
		if content.Interactive.Header != nil {
			strong(content.Interactive.Header.Text)
		}
		p(content.Interactive.Body.Text)
		if content.Interactive.Footer != nil {
			p(content.Interactive.Footer.Text)
		}
		if len(content.Interactive.Options) > 0 {
			b.WriteString("<ul>")
			for _, opt := range content.Interactive.Options {
				b.WriteString("<li>" + html.EscapeString(opt.Label) + "</li>")
			}
			b.WriteString("</ul>")
		}
	case content.Channel != nil:
		if content.Channel.Header != nil {
			strong(content.Channel.Header.Text)
		}
		p(content.Channel.Body.Text)
		for _, comp := range content.Channel.Components {
			p(comp.Text)
		}
	}

	return b.String()
}
