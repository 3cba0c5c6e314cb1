package classify

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/sourcewise/commodityflow/internal/index"
	"github.com/sourcewise/commodityflow/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptBuilder renders the prompts sent to the reasoning service.
type PromptBuilder struct {
	correction *template.Template
}

// NewPromptBuilder loads the embedded prompt templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	funcMap := template.FuncMap{
		"percent": func(score float64) string {
			return fmt.Sprintf("%.1f%%", score*100)
		},
	}

	tmpl, err := template.New("correction_prompt.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/correction_prompt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse correction template: %w", err)
	}

	return &PromptBuilder{correction: tmpl}, nil
}

// correctionData is the template context for the correction prompt.
type correctionData struct {
	Row            *model.InventoryRow
	NormalizedText string
	Candidates     []index.Match
}

// CorrectionPrompt renders the secondary-analysis prompt for one row and its
// candidate catalog matches.
func (p *PromptBuilder) CorrectionPrompt(row *model.InventoryRow, normalizedText string, candidates []index.Match) (string, error) {
	var buf bytes.Buffer
	err := p.correction.Execute(&buf, correctionData{
		Row:            row,
		NormalizedText: normalizedText,
		Candidates:     candidates,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render correction prompt: %w", err)
	}
	return buf.String(), nil
}
