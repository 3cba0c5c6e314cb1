package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "blank input",
			input: "   \t ",
			want:  "",
		},
		{
			name:  "html entity decode",
			input: "NUTS &amp; BOLTS",
			want:  "NUTS and BOLTS",
		},
		{
			name:  "typographic dash",
			input: "PANEL – REAR — STEEL",
			want:  "PANEL - REAR - STEEL",
		},
		{
			name:  "ac dc canonicalized before ampersand handling",
			input: "AC/DC POWER SUPPLY",
			want:  "alternating current and direct current POWER SUPPLY",
		},
		{
			name:  "ampersand conjunction",
			input: "WASHERS & SCREWS",
			want:  "WASHERS and SCREWS",
		},
		{
			name:  "adjacent ampersands",
			input: "A & & B",
			want:  "A and and B",
		},
		{
			name:  "double encoded entity",
			input: "NUTS &amp;amp; BOLTS",
			want:  "NUTS and BOLTS",
		},
		{
			name:  "abbreviation expansion",
			input: "BRKT ASSY SST",
			want:  "bracket assembly stainless steel",
		},
		{
			name:  "case insensitive word boundary",
			input: "conn housing assy",
			want:  "connector housing assembly",
		},
		{
			name:  "mid word match untouched",
			input: "CONNECTED ASSYMETRIC",
			want:  "CONNECTED ASSYMETRIC",
		},
		{
			name:  "list style token at line start",
			input: "RES 10K OHM",
			want:  "resistor 10K OHM",
		},
		{
			name:  "list style token after comma",
			input: "KIT, CAP 100UF",
			want:  "KIT, capacitor 100UF",
		},
		{
			name:  "list style token mid text not expanded",
			input: "SCREW CAP HEAD",
			want:  "SCREW CAP HEAD",
		},
		{
			name:  "paren aware expansion",
			input: "PCB CONTROLLER",
			want:  "printed circuit board (PCB) CONTROLLER",
		},
		{
			name:  "already parenthesized not re-expanded",
			input: "printed circuit board (PCB) CONTROLLER",
			want:  "printed circuit board (PCB) CONTROLLER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"NUTS &amp; BOLTS",
		"AC/DC PWR SUPPLY – 240V",
		"RES 10K, CAP 100UF, SW TOGGLE",
		"PCB ASSY W MTG BRKT",
		"plain already normalized text",
		"PCBA REV C",
		"A & & B",
		"NUTS &amp;amp; BOLTS",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", input)
	}
}
