package risk

// LocationType is the kind of physical site statistically associated with a
// declared economic activity (CNAE).
type LocationType string

const (
	LocationCommercial   LocationType = "COMMERCIAL"
	LocationOffice       LocationType = "OFFICE"
	LocationIndustrial   LocationType = "INDUSTRIAL"
	LocationHomeOfficeOK LocationType = "HOME_OFFICE_OK"
	LocationUnknown      LocationType = "UNKNOWN"
)

// Zone is the zone type the vision model observed in the address photo.
type Zone string

const (
	ZoneCommercial  Zone = "COMMERCIAL"
	ZoneResidential Zone = "RESIDENTIAL"
	ZoneIndustrial  Zone = "INDUSTRIAL"
	ZoneRural       Zone = "RURAL"
	ZoneUnknown     Zone = "UNKNOWN"
)

// RoadType is the road surface visible in the photo.
type RoadType string

const (
	RoadPaved      RoadType = "PAVED"
	RoadDirt       RoadType = "DIRT"
	RoadNotVisible RoadType = "NOT_VISIBLE"
)

// Compatibility is the vision model's own activity/location compatibility call.
type Compatibility string

const (
	CompatibilityHigh    Compatibility = "HIGH"
	CompatibilityMedium  Compatibility = "MEDIUM"
	CompatibilityLow     Compatibility = "LOW"
	CompatibilityUnknown Compatibility = "UNKNOWN"
)

// Category is the final three-tier risk verdict.
type Category string

const (
	CategoryLow    Category = "LOW"
	CategoryMedium Category = "MEDIUM"
	CategoryHigh   Category = "HIGH"
)

// VisualObservation is the structured result of the external vision analysis.
// The rule engine only reads it, never mutates it.
type VisualObservation struct {
	ApparentZone          Zone          `json:"apparent_zone"`
	RoadType              RoadType      `json:"road_type"`
	HasCommercialSignage  bool          `json:"has_commercial_signage"`
	HasStorefronts        bool          `json:"has_storefronts"`
	HasResidentialHouses  bool          `json:"has_residential_houses"`
	CNAECompatibility     Compatibility `json:"cnae_compatibility"`
	IncompatibilityReasons []string     `json:"incompatibility_reasons,omitempty"`
	SuggestedRiskLevel    string        `json:"suggested_risk_level,omitempty"`
	DetailedAnalysis      string        `json:"detailed_analysis,omitempty"`
}

// NeutralObservation is what a failed or missing vision analysis degrades to.
// The rule engine sees it as an UNKNOWN zone and nothing else.
func NeutralObservation() VisualObservation {
	return VisualObservation{
		ApparentZone:      ZoneUnknown,
		RoadType:          RoadNotVisible,
		CNAECompatibility: CompatibilityUnknown,
	}
}

// RiskAssessment is the aggregator's output. Produced atomically per
// evaluation; a new assessment supersedes the prior one for the same subject.
type RiskAssessment struct {
	ExpectedType LocationType `json:"expected_location_type"`
	Flags        []string     `json:"flags"`
	Score        int          `json:"score"`
	Category     Category     `json:"category"`
}
