package vision

import (
	"fmt"
	"strings"
)

// buildPrompt asks the model to describe the address facade and judge its
// compatibility with the company's declared activities, replying with strict
// JSON only.
func buildPrompt(activities []Activity, legalName, tradeName string) string {
	var b strings.Builder

	b.WriteString(`You are a company-registration risk analyst.

You receive:
1) A street-level photo of a registered business address.
2) The company's declared economic activities (below).

Your task:
- Describe, objectively, the visible zone type (residential, commercial, industrial, rural).
- Judge whether the facade and surroundings look compatible with the declared activities.
- Watch for signs of a suspicious headquarters location, such as:
  - Unpaved road in a simple residential area.
  - Houses dominating with no commerce around.
  - Empty lot or unfinished construction.
  - No commercial signage or company identification.

Reply ONLY with JSON in exactly this shape:

{
  "apparent_zone": "COMMERCIAL | RESIDENTIAL | INDUSTRIAL | RURAL | UNKNOWN",
  "road_type": "PAVED | DIRT | NOT_VISIBLE",
  "has_commercial_signage": true/false,
  "has_storefronts": true/false,
  "has_residential_houses": true/false,
  "cnae_compatibility": "HIGH | MEDIUM | LOW | UNKNOWN",
  "incompatibility_reasons": ["reason1", "reason2"],
  "suggested_risk_level": "HIGH | MEDIUM | LOW",
  "detailed_analysis": "detailed textual analysis (2-3 paragraphs)"
}

COMPANY DETAILS:
`)

	if legalName != "" {
		fmt.Fprintf(&b, "Legal name: %s\n", legalName)
	}
	if tradeName != "" {
		fmt.Fprintf(&b, "Trade name: %s\n", tradeName)
	}

	b.WriteString("\nDECLARED ACTIVITIES:\n")
	for _, a := range activities {
		fmt.Fprintf(&b, "- %s - %s\n", a.Code, a.Description)
	}

	b.WriteString("\nReply ONLY with the JSON, no text before or after.")
	return b.String()
}
