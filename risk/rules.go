package risk

// Risk flag vocabulary. Each flag maps to exactly one rule, so the rule set
// never emits duplicates.
const (
	FlagZoneMismatchCommercialResidential = "ZONE_MISMATCH_COMMERCIAL_RESIDENTIAL"
	FlagDirtRoadWithCommercialCNAE        = "DIRT_ROAD_WITH_COMMERCIAL_CNAE"
	FlagNoCommercialSigns                 = "NO_COMMERCIAL_SIGNS"
	FlagResidentialAreaNoCommerce         = "RESIDENTIAL_AREA_NO_COMMERCE"
	FlagLowAICompatibility                = "LOW_AI_COMPATIBILITY"
	FlagIndustryInNonIndustrialZone       = "INDUSTRY_IN_NON_INDUSTRIAL_ZONE"
	FlagOfficeInResidentialSuspicious     = "OFFICE_IN_RESIDENTIAL_SUSPICIOUS"
	FlagOfficeInResidentialHomeOffice     = "OFFICE_IN_RESIDENTIAL_POSSIBLE_HOME_OFFICE"
	FlagMediumAICompatibility             = "MEDIUM_AI_COMPATIBILITY"
	FlagUndefinedZone                     = "UNDEFINED_ZONE"
	FlagCompatibleHomeOffice              = "COMPATIBLE_HOME_OFFICE"
	FlagHighAICompatibility               = "HIGH_AI_COMPATIBILITY"
	FlagTyposquattingDetected             = "TYPOSQUATTING_DETECTED"
)

// Rule score deltas. Visual-analysis rules carry reduced weights relative to
// the hard typosquatting signal folded in by the aggregator.
const (
	deltaZoneMismatch      = 30
	deltaDirtRoad          = 25
	deltaNoCommercialSigns = 22
	deltaResidentialArea   = 20
	deltaLowCompat         = 35
	deltaIndustryMismatch  = 32
	deltaOfficeSuspicious  = 15
	deltaOfficeHomeOffice  = 5
	deltaMediumCompat      = 17
	deltaUndefinedZone     = 10
	deltaHighCompat        = -10
)

// RuleResult is the rule engine's partial verdict: ordered flags and a score
// that is floored at 0 but not yet upper-clamped. The upper clamp happens
// once, in Aggregate, after the typosquatting penalty.
type RuleResult struct {
	Flags []string `json:"flags"`
	Score int      `json:"score"`
}

// EvaluateRules applies the visual/CNAE compatibility rule set. Rules fire
// independently in a fixed order; only rules 7 and 7b are mutually exclusive.
func EvaluateRules(obs VisualObservation, expected LocationType) RuleResult {
	flags := []string{}
	score := 0

	// 1. Commercial/industrial activity fronted by a residential zone.
	if (expected == LocationCommercial || expected == LocationIndustrial) &&
		obs.ApparentZone == ZoneResidential {
		flags = append(flags, FlagZoneMismatchCommercialResidential)
		score += deltaZoneMismatch
	}

	// 2. Dirt road in a residential area with a commercial activity.
	if expected == LocationCommercial && obs.ApparentZone == ZoneResidential &&
		obs.RoadType == RoadDirt {
		flags = append(flags, FlagDirtRoadWithCommercialCNAE)
		score += deltaDirtRoad
	}

	// 3. Commercial activity with no signage and no storefronts.
	if expected == LocationCommercial && !obs.HasCommercialSignage && !obs.HasStorefronts {
		flags = append(flags, FlagNoCommercialSigns)
		score += deltaNoCommercialSigns
	}

	// 4. Houses dominate, no storefronts in sight.
	if expected == LocationCommercial && obs.HasResidentialHouses && !obs.HasStorefronts {
		flags = append(flags, FlagResidentialAreaNoCommerce)
		score += deltaResidentialArea
	}

	// 5. Vision model itself reports low compatibility.
	if obs.CNAECompatibility == CompatibilityLow {
		flags = append(flags, FlagLowAICompatibility)
		score += deltaLowCompat
	}

	// 6. Industrial activity in a residential or commercial zone.
	if expected == LocationIndustrial &&
		(obs.ApparentZone == ZoneResidential || obs.ApparentZone == ZoneCommercial) {
		flags = append(flags, FlagIndustryInNonIndustrialZone)
		score += deltaIndustryMismatch
	}

	// 7 / 7b. Office activity in a residential zone: suspicious when the road
	// is dirt or there is no signage, otherwise plausibly a home office.
	if expected == LocationOffice && obs.ApparentZone == ZoneResidential {
		if obs.RoadType == RoadDirt || !obs.HasCommercialSignage {
			flags = append(flags, FlagOfficeInResidentialSuspicious)
			score += deltaOfficeSuspicious
		} else {
			flags = append(flags, FlagOfficeInResidentialHomeOffice)
			score += deltaOfficeHomeOffice
		}
	}

	// 8. Medium compatibility from the vision model.
	if obs.CNAECompatibility == CompatibilityMedium {
		flags = append(flags, FlagMediumAICompatibility)
		score += deltaMediumCompat
	}

	// 9. Zone could not be determined.
	if obs.ApparentZone == ZoneUnknown {
		flags = append(flags, FlagUndefinedZone)
		score += deltaUndefinedZone
	}

	// 10. Home-office-compatible activity in a residential zone. Informational
	// only, no score contribution.
	if expected == LocationHomeOfficeOK && obs.ApparentZone == ZoneResidential {
		flags = append(flags, FlagCompatibleHomeOffice)
	}

	// 11. High compatibility reduces the score, floored at zero here so the
	// aggregator only has to handle the upper bound.
	if obs.CNAECompatibility == CompatibilityHigh {
		flags = append(flags, FlagHighAICompatibility)
		score += deltaHighCompat
		if score < 0 {
			score = 0
		}
	}

	return RuleResult{Flags: flags, Score: score}
}
