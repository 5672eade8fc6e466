package domain

import "fmt"

const (
	// mediaReferenceOverheadBytes approximates the channel-side weight of a
	// media reference; the asset itself is hosted externally.
	mediaReferenceOverheadBytes = 256
	// channelEnvelopeOverheadBytes approximates the protocol envelope a
	// pre-approved channel template carries beyond its text.
	channelEnvelopeOverheadBytes = 128
)

// RenderContent substitutes the supplied variables into the template's
// content, producing channel-ready output and a byte-size estimate.
//
// Completeness is checked against re-extracted placeholders before any
// substitution happens: either every placeholder resolves or the call fails
// with *MissingVariableError naming the first unresolved one. No partial
// output is ever returned. The template itself is never mutated.
func RenderContent(tpl *MessageTemplate, vars map[string]string) (TemplateContent, int, error) {
	if err := checkBranch(tpl); err != nil {
		return TemplateContent{}, 0, err
	}
	if err := checkVariables(tpl.Content, vars); err != nil {
		return TemplateContent{}, 0, err
	}

	switch tpl.Type {
	case TemplateTypeText:
		return renderText(tpl.Content.Text, vars)
	case TemplateTypeMedia:
		return renderMedia(tpl.Content.Media, vars)
	case TemplateTypeInteractive:
		return renderInteractive(tpl.Content.Interactive, vars)
	case TemplateTypeChannel:
		return renderChannel(tpl.Content.Channel, vars)
	}
	return TemplateContent{}, 0, &RenderError{Reason: fmt.Sprintf("unknown template type %q", tpl.Type)}
}

// checkBranch verifies the populated content branch matches the declared
// type. A mismatch means corrupted persisted content, not caller error.
func checkBranch(tpl *MessageTemplate) error {
	var ok bool
	switch tpl.Type {
	case TemplateTypeText:
		ok = tpl.Content.Text != nil
	case TemplateTypeMedia:
		ok = tpl.Content.Media != nil
	case TemplateTypeInteractive:
		ok = tpl.Content.Interactive != nil
	case TemplateTypeChannel:
		ok = tpl.Content.Channel != nil
	default:
		return &RenderError{Reason: fmt.Sprintf("unknown template type %q", tpl.Type)}
	}
	if !ok {
		return &RenderError{Reason: fmt.Sprintf("content branch missing for type %q", tpl.Type)}
	}
	return nil
}

// checkVariables fails fast on the first placeholder with no matching input
// key. Extraction order is first appearance in content.
func checkVariables(content TemplateContent, vars map[string]string) error {
	for _, name := range ExtractVariables(content) {
		if _, ok := vars[name]; !ok {
			return &MissingVariableError{Variable: name}
		}
	}
	return nil
}

func renderText(c *TextContent, vars map[string]string) (TemplateContent, int, error) {
	out := &TextContent{
		Text:    substituteVariables(c.Text, vars),
		Caption: substituteVariables(c.Caption, vars),
	}
	size := len(out.Text) + len(out.Caption)
	return TemplateContent{Text: out}, size, nil
}

func renderMedia(c *MediaContent, vars map[string]string) (TemplateContent, int, error) {
	// MediaType and MediaURL pass through unchanged; only the caption is templated.
	out := &MediaContent{
		MediaType: c.MediaType,
		MediaURL:  c.MediaURL,
		Caption:   substituteVariables(c.Caption, vars),
	}
	size := mediaReferenceOverheadBytes + len(out.Caption)
	return TemplateContent{Media: out}, size, nil
}

func renderInteractive(c *InteractiveContent, vars map[string]string) (TemplateContent, int, error) {
	out := &InteractiveContent{
		Kind: c.Kind,
		Body: InteractiveBody{Text: substituteVariables(c.Body.Text, vars)},
	}
	size := len(out.Body.Text)

	if c.Header != nil {
		out.Header = &InteractiveHeader{
			Type: c.Header.Type,
			Text: substituteVariables(c.Header.Text, vars),
		}
		size += len(out.Header.Text)
	}
	if c.Footer != nil {
		out.Footer = &InteractiveFooter{Text: substituteVariables(c.Footer.Text, vars)}
		size += len(out.Footer.Text)
	}

	// Options are structural: labels and ids are copied verbatim, never substituted.
	if len(c.Options) > 0 {
		out.Options = make([]InteractiveOption, len(c.Options))
		copy(out.Options, c.Options)
	}

	return TemplateContent{Interactive: out}, size, nil
}

func renderChannel(c *ChannelContent, vars map[string]string) (TemplateContent, int, error) {
	out := &ChannelContent{
		Language: c.Language,
		Body:     ChannelBody{Text: substituteVariables(c.Body.Text, vars)},
	}
	size := channelEnvelopeOverheadBytes + len(out.Body.Text)

	if c.Header != nil {
		out.Header = &ChannelHeader{
			Type: c.Header.Type,
			Text: substituteVariables(c.Header.Text, vars),
		}
		size += len(out.Header.Text)
	}

	for _, comp := range c.Components {
		if err := checkComponentVariables(comp, vars); err != nil {
			return TemplateContent{}, 0, err
		}
		rendered := ChannelComponent{
			Type: comp.Type,
			Text: substituteVariables(comp.Text, vars),
		}
		size += len(rendered.Text)
		out.Components = append(out.Components, rendered)
	}

	return TemplateContent{Channel: out}, size, nil
}

// checkComponentVariables attributes a missing variable to its component so
// the aggregate error can name the first offender. The whole-content check in
// RenderContent normally catches this first; this guards direct callers.
func checkComponentVariables(comp ChannelComponent, vars map[string]string) error {
	for _, m := range variablePattern.FindAllStringSubmatch(comp.Text, -1) {
		name := trimmedVariableName(m[1])
		if name == "" {
			continue
		}
		if _, ok := vars[name]; !ok {
			return &MissingVariableError{Variable: name, Component: comp.Type}
		}
	}
	return nil
}
