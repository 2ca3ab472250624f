package adjudicator

import (
	"fmt"
	"strings"

	"github.com/agenthands/nexus/internal/core/model"
)

func buildPrompt(candidate model.CandidateEntity, contenders []model.SimilarityScore) string {
	var sb strings.Builder

	sb.WriteString(`You are an entity resolution judge. Decide, for each existing entity below, whether the new mention refers to the same real-world entity.

<NEW MENTION>
`)
	sb.WriteString(profileOf(candidate.Name, candidate.Type, nil, candidate.Attributes))
	if candidate.SourceExcerpt != "" {
		fmt.Fprintf(&sb, "Source excerpt: %s\n", candidate.SourceExcerpt)
	}
	sb.WriteString("</NEW MENTION>\n\n<EXISTING ENTITIES>\n")

	for _, c := range contenders {
		fmt.Fprintf(&sb, "- UUID: %s\n", c.Canonical.UUID)
		sb.WriteString(indent(profileOf(c.Canonical.Name, c.Canonical.Type, c.Canonical.Aliases, c.Canonical.Attributes)))
	}
	sb.WriteString("</EXISTING ENTITIES>\n\n")

	sb.WriteString(`Instructions:
Return a JSON object with key "verdicts": one object per existing entity, in any order.
Each object must have "canonical_uuid" (string), "match" (boolean), "confidence" (number between 0 and 1), and "reason" (string).

Example JSON:
{
  "verdicts": [
    {"canonical_uuid": "existing-1", "match": true, "confidence": 0.92, "reason": "same person, name variant"}
  ]
}
Do not output any other text.`)

	return sb.String()
}

func profileOf(name, entityType string, aliases []model.Alias, attrs map[string]interface{}) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\nType: %s\n", name, entityType)

	if len(aliases) > 0 {
		texts := make([]string, len(aliases))
		for i, a := range aliases {
			texts[i] = a.Text
		}
		fmt.Fprintf(&sb, "Aliases: %s\n", strings.Join(texts, ", "))
	}
	for k, v := range attrs {
		fmt.Fprintf(&sb, "%s: %v\n", k, v)
	}
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
