package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var previewClock = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

func TestBuildPreview_SynthesizesSampleVariables(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText,
		textContent("Olá {{name}}, entrega em {{delivery_date}}. Saldo: {{account_balance}}."))

	preview, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock})
	require.NoError(t, err)

	assert.Equal(t, "Maria", preview.SampleVariables["name"])
	assert.Equal(t, "10/03/2025", preview.SampleVariables["delivery_date"])
	assert.Equal(t, "[account_balance]", preview.SampleVariables["account_balance"])
	assert.Contains(t, preview.PreviewText, "Olá Maria")
	assert.Contains(t, preview.PreviewText, "[account_balance]")
	assert.Equal(t, previewClock, preview.GeneratedAt)
	assert.Empty(t, preview.Warnings)
}

func TestBuildPreview_Deterministic(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent("{{name}} {{order_id}} {{date}}"))

	p1, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock})
	require.NoError(t, err)
	p2, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock})
	require.NoError(t, err)

	assert.Equal(t, p1.PreviewText, p2.PreviewText)
	assert.Equal(t, p1.SampleVariables, p2.SampleVariables)
}

func TestBuildPreview_UsesCallerSampleData(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent("Oi {{name}}"))

	preview, err := BuildPreview(tpl, map[string]string{"name": "João"}, PreviewOptions{Now: previewClock})
	require.NoError(t, err)
	assert.Equal(t, "Oi João", preview.PreviewText)
}

func TestBuildPreview_OversizeWarning(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent(strings.Repeat("a", 5000)))

	preview, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock})
	require.NoError(t, err)
	require.NotEmpty(t, preview.Warnings)
	assert.Contains(t, preview.Warnings[0], "byte")
	assert.Equal(t, 5000, preview.EstimatedSizeBytes)
}

func TestBuildPreview_CustomCeiling(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent(strings.Repeat("b", 200)))

	preview, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock, MaxMessageBytes: 100})
	require.NoError(t, err)
	assert.NotEmpty(t, preview.Warnings)
}

func TestBuildPreview_HTMLEscapes(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent("2 < 3 e {{name}}"))

	preview, err := BuildPreview(tpl, map[string]string{"name": "<b>Maria</b>"}, PreviewOptions{Now: previewClock})
	require.NoError(t, err)
	assert.Contains(t, preview.PreviewHTML, "&lt;b&gt;Maria&lt;/b&gt;")
	assert.NotContains(t, preview.PreviewHTML, "<b>Maria</b>")
}

func TestBuildPreview_InteractiveFlattensOptions(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeInteractive, TemplateContent{Interactive: &InteractiveContent{
		Kind: InteractiveKindButtons,
		Body: InteractiveBody{Text: "Confirma, {{name}}?"},
		Options: []InteractiveOption{
			{Label: "Sim", ID: "yes"},
			{Label: "Não", ID: "no"},
		},
	}})

	preview, err := BuildPreview(tpl, nil, PreviewOptions{Now: previewClock})
	require.NoError(t, err)
	assert.Contains(t, preview.PreviewText, "Confirma, Maria?")
	assert.Contains(t, preview.PreviewText, "• Sim")
	assert.Contains(t, preview.PreviewHTML, "<li>Sim</li>")
}

func TestBuildPreview_PropagatesMissingVariable(t *testing.T) {
	tpl := newTestTemplate(TemplateTypeText, textContent("Oi {{name}} e {{friend}}"))

	// Partial sample data: render must fail, not fall back to synthesis.
	_, err := BuildPreview(tpl, map[string]string{"name": "Maria"}, PreviewOptions{Now: previewClock})
	var missing *MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "friend", missing.Variable)
}

func TestSynthesizeSampleVariables_Conventions(t *testing.T) {
	vars := SynthesizeSampleVariables(
		[]string{"first_name", "last_name", "email", "phone", "date", "time", "order_id", "company", "whatever"},
		previewClock,
	)
	assert.Equal(t, "Maria", vars["first_name"])
	assert.Equal(t, "Silva", vars["last_name"])
	assert.Equal(t, "maria@example.com", vars["email"])
	assert.Equal(t, "+55 11 91234-5678", vars["phone"])
	assert.Equal(t, "10/03/2025", vars["date"])
	assert.Equal(t, "14:30", vars["time"])
	assert.Equal(t, "A123", vars["order_id"])
	assert.Equal(t, "Acme Ltda", vars["company"])
	assert.Equal(t, "[whatever]", vars["whatever"])
}
