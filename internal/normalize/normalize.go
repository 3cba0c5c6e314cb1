// Package normalize expands abbreviated inventory descriptions into the
// canonical long forms used as embedding input. Normalized text is the key
// of the persisted embedding cache, so Normalize must be idempotent: running
// it over already-normalized text yields the same string.
package normalize

import (
	"regexp"
	"strings"
)

// entityReplacer decodes the HTML entities that survive spreadsheet exports.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// dashReplacer folds typographic dashes and minus signs to ASCII hyphens.
var dashReplacer = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
)

// acdcPattern is rewritten before the generic ampersand rule so that the
// slash form never turns into a half-expanded hybrid.
var acdcPattern = regexp.MustCompile(`(?i)\bAC\s*/\s*DC\b`)

// rule is one abbreviation expansion.
//
// listStyle rules only fire at the start of the text or immediately after a
// comma-space, which is where list-style tokens appear; firing them mid-word
// would corrupt phrases like "CAP SCREW HEAD RES".
//
// parenAware rules expand to "long form (ABBR)" and are skipped when the
// match is already parenthesized, which keeps reprocessing from stacking
// expansions.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
	listStyle   bool
	parenAware  bool
}

var rules = []rule{
	{pattern: regexp.MustCompile(`(?i)\bASSY\b`), replacement: "assembly"},
	{pattern: regexp.MustCompile(`(?i)\bCONN\b`), replacement: "connector"},
	{pattern: regexp.MustCompile(`(?i)\bBRKT\b`), replacement: "bracket"},
	{pattern: regexp.MustCompile(`(?i)\bHDW\b`), replacement: "hardware"},
	{pattern: regexp.MustCompile(`(?i)\bPWR\b`), replacement: "power"},
	{pattern: regexp.MustCompile(`(?i)\bSST\b`), replacement: "stainless steel"},
	{pattern: regexp.MustCompile(`(?i)\bALUM\b`), replacement: "aluminum"},
	{pattern: regexp.MustCompile(`(?i)\bQTY\b`), replacement: "quantity"},
	{pattern: regexp.MustCompile(`(?i)\bMTG\b`), replacement: "mounting"},
	{pattern: regexp.MustCompile(`(?i)\bTHRD\b`), replacement: "threaded"},
	{pattern: regexp.MustCompile(`(?i)\bPCB\b`), replacement: "printed circuit board (PCB)", parenAware: true},
	{pattern: regexp.MustCompile(`(?i)\bPCBA\b`), replacement: "printed circuit board assembly (PCBA)", parenAware: true},
	{pattern: regexp.MustCompile(`(?i)\bRES\b`), replacement: "resistor", listStyle: true},
	{pattern: regexp.MustCompile(`(?i)\bCAP\b`), replacement: "capacitor", listStyle: true},
	{pattern: regexp.MustCompile(`(?i)\bSW\b`), replacement: "switch", listStyle: true},
	{pattern: regexp.MustCompile(`(?i)\bXFMR\b`), replacement: "transformer"},
}

// Normalize applies the expansion rules in order and returns the canonical
// form of text. Blank input returns the empty string; malformed input is
// handled best-effort and never produces an error.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = dashReplacer.Replace(text)
	text = acdcPattern.ReplaceAllString(text, "alternating current and direct current")
	// Entity decoding can surface another entity ("&amp;amp;") and an
	// ampersand rewrite can surface another " & " ("A & & B"), so both
	// passes run to a fixed point. Each productive iteration removes an
	// ampersand or shortens the text, so the loop terminates.
	for {
		next := entityReplacer.Replace(text)
		next = strings.ReplaceAll(next, " & ", " and ")
		if next == text {
			break
		}
		text = next
	}

	for _, r := range rules {
		text = applyRule(text, r)
	}

	return strings.TrimSpace(text)
}

func applyRule(text string, r rule) string {
	var out strings.Builder
	last := 0

	for _, loc := range r.pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if r.listStyle && !atListPosition(text, start) {
			continue
		}
		if r.parenAware && parenthesized(text, start, end) {
			continue
		}
		out.WriteString(text[last:start])
		out.WriteString(r.replacement)
		last = end
	}

	if last == 0 {
		return text
	}
	out.WriteString(text[last:])
	return out.String()
}

// atListPosition reports whether the match sits at the start of the text or
// immediately after a comma-space separator.
func atListPosition(text string, start int) bool {
	if start == 0 {
		return true
	}
	return start >= 2 && text[start-2:start] == ", "
}

// parenthesized reports whether the match is already wrapped in parentheses.
func parenthesized(text string, start, end int) bool {
	return start > 0 && text[start-1] == '(' && end < len(text) && text[end] == ')'
}
