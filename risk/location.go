package risk

import "strings"

// OverrideLookup resolves a persisted per-code location-type override.
// It is consulted before the static prefix table and may return
// (LocationUnknown, false) when no override exists. The store behind it is
// externally owned; lookups here are read-only.
type OverrideLookup func(code string) (LocationType, bool)

// Classifier maps an economic-activity code to the expected location type.
type Classifier struct {
	overrides OverrideLookup
}

func NewClassifier(overrides OverrideLookup) *Classifier {
	return &Classifier{overrides: overrides}
}

// Static 4-digit prefix table. The source rule table listed a handful of
// office-service prefixes (6201, 6204, 7020, 7319, 7410, 7420) a second time
// under the home-office section; we resolve the conflict first-registered-wins,
// so those prefixes stay OFFICE and only the pure internet-retail prefixes
// (4791, 4799) map to HOME_OFFICE_OK.
var prefixLocationTable = map[string]LocationType{
	// Retail commerce - expects a storefront
	"4711": LocationCommercial,
	"4719": LocationCommercial,
	"4721": LocationCommercial,
	"4731": LocationCommercial,
	"4741": LocationCommercial,
	"4751": LocationCommercial,
	"4761": LocationCommercial,
	"4771": LocationCommercial,
	"4781": LocationCommercial,

	// Services and offices
	"6201": LocationOffice,
	"6202": LocationOffice,
	"6203": LocationOffice,
	"6204": LocationOffice,
	"6209": LocationOffice,
	"6311": LocationOffice,
	"6319": LocationOffice,
	"7020": LocationOffice,
	"7111": LocationOffice,
	"7112": LocationOffice,
	"7210": LocationOffice,
	"7319": LocationOffice,
	"7410": LocationOffice,
	"7420": LocationOffice,
	"7490": LocationOffice,

	// Manufacturing - expects an industrial zone or warehouse
	"1011": LocationIndustrial,
	"1012": LocationIndustrial,
	"1020": LocationIndustrial,
	"1031": LocationIndustrial,
	"1041": LocationIndustrial,
	"1051": LocationIndustrial,
	"1061": LocationIndustrial,
	"1071": LocationIndustrial,
	"1081": LocationIndustrial,
	"1091": LocationIndustrial,
	"2511": LocationIndustrial,
	"2521": LocationIndustrial,
	"2539": LocationIndustrial,
	"2591": LocationIndustrial,
	"2599": LocationIndustrial,
	"2610": LocationIndustrial,
	"2621": LocationIndustrial,
	"2631": LocationIndustrial,
	"2640": LocationIndustrial,
	"2711": LocationIndustrial,
	"2721": LocationIndustrial,
	"2731": LocationIndustrial,
	"2740": LocationIndustrial,
	"2751": LocationIndustrial,
	"2790": LocationIndustrial,
	"2811": LocationIndustrial,
	"2821": LocationIndustrial,
	"2829": LocationIndustrial,
	"2910": LocationIndustrial,
	"2920": LocationIndustrial,
	"2930": LocationIndustrial,
	"3011": LocationIndustrial,
	"3012": LocationIndustrial,
	"3021": LocationIndustrial,
	"3031": LocationIndustrial,
	"3032": LocationIndustrial,
	"3091": LocationIndustrial,
	"3092": LocationIndustrial,
	"3099": LocationIndustrial,

	// Logistics and storage
	"5211": LocationIndustrial,
	"5221": LocationIndustrial,
	"5222": LocationIndustrial,
	"5223": LocationIndustrial,
	"5224": LocationIndustrial,
	"5229": LocationIndustrial,

	// Construction
	"4110": LocationIndustrial,
	"4211": LocationIndustrial,
	"4212": LocationIndustrial,
	"4213": LocationIndustrial,
	"4221": LocationIndustrial,
	"4222": LocationIndustrial,
	"4223": LocationIndustrial,
	"4291": LocationIndustrial,
	"4299": LocationIndustrial,

	// Internet retail, viable from a residence
	"4791": LocationHomeOfficeOK,
	"4799": LocationHomeOfficeOK,
}

// CleanActivityCode strips formatting punctuation from a CNAE code, e.g.
// "6201-5/01" -> "6201501"-style digit runs.
func CleanActivityCode(code string) string {
	r := strings.NewReplacer("-", "", "/", "", ".", "", " ", "")
	return strings.TrimSpace(r.Replace(code))
}

// Classify maps an activity code to its expected location type. A persisted
// override wins over the static table; absence of data is UNKNOWN, never an
// error.
func (c *Classifier) Classify(code string) LocationType {
	clean := CleanActivityCode(code)

	if c.overrides != nil {
		if t, ok := c.overrides(clean); ok {
			return t
		}
	}

	if len(clean) < 4 {
		return LocationUnknown
	}
	if t, ok := prefixLocationTable[clean[:4]]; ok {
		return t
	}
	return LocationUnknown
}
