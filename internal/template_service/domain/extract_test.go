package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func textContent(text string) TemplateContent {
	return TemplateContent{Text: &TextContent{Text: text}}
}

func TestExtractVariables_Text(t *testing.T) {
	vars := ExtractVariables(TemplateContent{Text: &TextContent{
		Text:    "Olá {{name}}, seu pedido {{order_id}} foi confirmado.",
		Caption: "Pedido {{order_id}}",
	}})
	assert.Equal(t, []string{"name", "order_id"}, vars)
}

func TestExtractVariables_TrimsWhitespace(t *testing.T) {
	vars := ExtractVariables(textContent("Hi {{ name }} and {{  city  }}"))
	assert.Equal(t, []string{"name", "city"}, vars)
}

func TestExtractVariables_Deduplicates(t *testing.T) {
	vars := ExtractVariables(textContent("{{a}} {{b}} {{a}} {{ a }}"))
	assert.Equal(t, []string{"a", "b"}, vars)
}

func TestExtractVariables_TotalOnMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"unclosed", "Hi {{name", nil},
		{"unopened", "Hi name}}", nil},
		{"single braces", "Hi {name}", nil},
		{"empty placeholder", "Hi {{}}", nil},
		{"whitespace only placeholder", "Hi {{   }}", nil},
		{"dangling close", "{{a}} }} {{", []string{"a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got := ExtractVariables(textContent(tc.text))
				assert.Equal(t, tc.want, got)
			})
		})
	}
}

func TestExtractVariables_EmptyContent(t *testing.T) {
	assert.Empty(t, ExtractVariables(TemplateContent{}))
}

func TestExtractVariables_MediaOnlyScansCaption(t *testing.T) {
	vars := ExtractVariables(TemplateContent{Media: &MediaContent{
		MediaType: "image",
		MediaURL:  "https://cdn.example.com/{{not_a_variable}}.png",
		Caption:   "Sua foto, {{name}}",
	}})
	assert.Equal(t, []string{"name"}, vars)
}

func TestExtractVariables_InteractiveSkipsOptions(t *testing.T) {
	vars := ExtractVariables(TemplateContent{Interactive: &InteractiveContent{
		Kind:   InteractiveKindButtons,
		Header: &InteractiveHeader{Type: "text", Text: "Olá {{name}}"},
		Body:   InteractiveBody{Text: "Confirma o pedido {{order_id}}?"},
		Footer: &InteractiveFooter{Text: "Equipe {{company}}"},
		Options: []InteractiveOption{
			{Label: "{{dynamic}}", ID: "opt-{{id}}"},
		},
	}})
	assert.Equal(t, []string{"name", "order_id", "company"}, vars)
}

func TestExtractVariables_ChannelComponents(t *testing.T) {
	vars := ExtractVariables(TemplateContent{Channel: &ChannelContent{
		Language: "pt_BR",
		Header:   &ChannelHeader{Type: "text", Text: "{{greeting}}"},
		Body:     ChannelBody{Text: "Seu código: {{code}}"},
		Components: []ChannelComponent{
			{Type: "footer", Text: "Válido até {{expiry_date}}"},
		},
	}})
	assert.Equal(t, []string{"greeting", "code", "expiry_date"}, vars)
}
