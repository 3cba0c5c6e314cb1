package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Correction is the parsed recommendation from the secondary analysis.
// An empty Commodity means the analyst model recommended keeping the
// current assignment.
type Correction struct {
	Commodity  string  `json:"commodity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ParseCorrection extracts a correction recommendation from raw completion
// output. Markdown code fences are tolerated; anything else malformed is an
// error the caller treats as "no correction".
func ParseCorrection(content string) (Correction, error) {
	content = cleanMarkdownWrapper(content)

	var c Correction
	if err := json.Unmarshal([]byte(content), &c); err != nil {
		return Correction{}, fmt.Errorf("failed to parse correction response: %w", err)
	}

	c.Commodity = strings.TrimSpace(c.Commodity)
	if c.Confidence < 0 || c.Confidence > 1 {
		return Correction{}, fmt.Errorf("confidence %v out of range", c.Confidence)
	}

	return c, nil
}

// cleanMarkdownWrapper strips ```json fences that models sometimes add
// despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
