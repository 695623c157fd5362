package risk

// Typosquatting is a high-confidence fraud signal, deliberately weighted
// heavier than any single visual-compatibility rule.
const typosquattingPenalty = 50

// Category breakpoints.
const (
	highRiskMin   = 60
	mediumRiskMin = 30
)

// Categorize maps a clamped score to the three-tier category.
func Categorize(score int) Category {
	switch {
	case score >= highRiskMin:
		return CategoryHigh
	case score >= mediumRiskMin:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Aggregate folds the rule-engine result and an optional typosquatting result
// into the final assessment. A nil typosquatting result means the check was
// not performed (e.g. a domain was unavailable) and is simply skipped; the
// aggregation never fails on missing enrichment.
func Aggregate(expected LocationType, rules RuleResult, typo *TyposquattingResult) RiskAssessment {
	flags := make([]string, len(rules.Flags))
	copy(flags, rules.Flags)
	score := rules.Score

	if typo != nil && typo.IsSuspicious {
		flags = append(flags, FlagTyposquattingDetected)
		score += typosquattingPenalty
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return RiskAssessment{
		ExpectedType: expected,
		Flags:        flags,
		Score:        score,
		Category:     Categorize(score),
	}
}
