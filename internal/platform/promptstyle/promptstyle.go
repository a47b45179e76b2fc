package promptstyle

import "strings"

const marker = "PAPERLENS_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to a system prompt. Prompts that
// already carry the block are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful research assistant helping a scientist plan follow-up work.")
	b.WriteString("\nGround every statement in the provided paper text or literature.")
	b.WriteString("\nNever invent citations, authors, datasets or numbers.")
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "json":
		b.WriteString("\nRespond with a single valid JSON value and nothing else: no markdown fences, no commentary.")
	case "strict_json":
		b.WriteString("\nYour previous answer could not be parsed.")
		b.WriteString("\nRespond ONLY with valid JSON matching the requested shape. The first character must be { or [.")
	default:
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}

// Has reports whether the guidance block was already applied.
func Has(system string) bool {
	return strings.Contains(system, marker)
}
