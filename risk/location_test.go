package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStaticTable(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, LocationCommercial, c.Classify("4711"))
	assert.Equal(t, LocationOffice, c.Classify("6201"))
	assert.Equal(t, LocationIndustrial, c.Classify("2511"))
	assert.Equal(t, LocationHomeOfficeOK, c.Classify("4791"))
}

func TestClassifyStripsFormatting(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, LocationOffice, c.Classify("6201-5/01"))
	assert.Equal(t, LocationCommercial, c.Classify("47.11"))
	assert.Equal(t, LocationCommercial, c.Classify(" 4711 "))
}

func TestClassifyUnknown(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, LocationUnknown, c.Classify(""))
	assert.Equal(t, LocationUnknown, c.Classify("12"))
	assert.Equal(t, LocationUnknown, c.Classify("1-2"))
	assert.Equal(t, LocationUnknown, c.Classify("9999"))
}

func TestClassifyLongCodeUsesPrefix(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, LocationOffice, c.Classify("6201501"))
}

func TestClassifyOverrideWins(t *testing.T) {
	c := NewClassifier(func(code string) (LocationType, bool) {
		if code == "4711" {
			return LocationIndustrial, true
		}
		return LocationUnknown, false
	})

	assert.Equal(t, LocationIndustrial, c.Classify("4711"))
	// no override registered: static table still applies
	assert.Equal(t, LocationOffice, c.Classify("6201"))
}

// Office-service prefixes duplicated in the source rule table resolve to
// OFFICE, not HOME_OFFICE_OK.
func TestClassifyConflictingPrefixesResolveToOffice(t *testing.T) {
	c := NewClassifier(nil)

	for _, code := range []string{"6201", "6204", "7020", "7319", "7410", "7420"} {
		assert.Equal(t, LocationOffice, c.Classify(code), "prefix %s", code)
	}
}
