package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorrection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Correction
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"commodity": "PACK LABELS", "confidence": 0.92, "reasoning": "label stock"}`,
			want:    Correction{Commodity: "PACK LABELS", Confidence: 0.92, Reasoning: "label stock"},
		},
		{
			name: "markdown fenced json",
			content: "```json\n" +
				`{"commodity": "HARDWARE", "confidence": 0.8, "reasoning": "fasteners"}` +
				"\n```",
			want: Correction{Commodity: "HARDWARE", Confidence: 0.8, Reasoning: "fasteners"},
		},
		{
			name:    "no change recommendation",
			content: `{"commodity": "", "confidence": 0, "reasoning": "assignment is correct"}`,
			want:    Correction{Reasoning: "assignment is correct"},
		},
		{
			name:    "commodity whitespace trimmed",
			content: `{"commodity": "  PACK BROWN BOX ", "confidence": 0.9}`,
			want:    Correction{Commodity: "PACK BROWN BOX", Confidence: 0.9},
		},
		{
			name:    "not json",
			content: "I think this is packaging.",
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			content: `{"commodity": "X", "confidence": 1.4}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCorrection(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixtureEmbedderDeterministic(t *testing.T) {
	f := NewFixtureEmbedder(nil)

	a, err := f.Embed(context.Background(), []string{"packaging box"})
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), []string{"packaging box"})
	require.NoError(t, err)

	assert.Equal(t, a[0], b[0])
}

func TestFixtureEmbedderTokenOverlap(t *testing.T) {
	f := NewFixtureEmbedder(nil)

	vecs, err := f.Embed(context.Background(), []string{"pack brown box", "packaging box", "hardware"})
	require.NoError(t, err)

	overlap := dot(vecs[0], vecs[1])
	unrelated := dot(vecs[0], vecs[2])
	assert.Greater(t, overlap, unrelated, "shared tokens should score higher")
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
