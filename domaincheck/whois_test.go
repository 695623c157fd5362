package domaincheck

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhoisDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"2020-05-17T03:00:00Z", true, "2020-05-17"},
		{"2020-05-17 03:00:00", true, "2020-05-17"},
		{"2020-05-17", true, "2020-05-17"},
		{"17-May-2020", true, "2020-05-17"},
		{"2020.05.17", true, "2020-05-17"},
		{"", false, ""},
		{"sometime in may", false, ""},
	}
	for _, c := range cases {
		got, ok := parseWhoisDate(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got.Format("2006-01-02"), "input %q", c.in)
		}
	}
}

func fakeChecker(raw string, err error) *AgeChecker {
	return &AgeChecker{lookup: func(domain string) (string, error) {
		return raw, err
	}}
}

func TestCheckAgeOldDomain(t *testing.T) {
	created := time.Now().UTC().AddDate(-3, 0, 0)
	raw := fmt.Sprintf("Domain Name: exemplo.com\nCreation Date: %s\nRegistrar: Example\n",
		created.Format("2006-01-02"))

	res := fakeChecker(raw, nil).CheckAge("exemplo.com", 0)

	require.Empty(t, res.Err)
	require.NotNil(t, res.AgeDays)
	assert.GreaterOrEqual(t, *res.AgeDays, 3*365-1)
	require.NotNil(t, res.IsRecent)
	assert.False(t, *res.IsRecent)
	assert.Equal(t, DefaultMinAgeDays, res.ThresholdDays)
}

func TestCheckAgeRecentDomain(t *testing.T) {
	created := time.Now().UTC().AddDate(0, 0, -30)
	raw := fmt.Sprintf("Domain Name: exemplo.com\nCreation Date: %s\n",
		created.Format("2006-01-02"))

	res := fakeChecker(raw, nil).CheckAge("exemplo.com", 180)

	require.NotNil(t, res.IsRecent)
	assert.True(t, *res.IsRecent)
}

func TestCheckAgeLookupFailureNonFatal(t *testing.T) {
	res := fakeChecker("", fmt.Errorf("connection refused")).CheckAge("exemplo.com", 180)

	assert.NotEmpty(t, res.Err)
	assert.Nil(t, res.AgeDays)
	assert.Nil(t, res.IsRecent)
}

func TestNewAgeCheckerHasDefaultLookup(t *testing.T) {
	c := NewAgeChecker()

	require.NotNil(t, c.lookup)
	// The default lookup must satisfy the single-argument signature; an
	// empty domain errors locally without touching the network.
	_, err := c.lookup("")
	assert.Error(t, err)
}

func TestCheckAgeEmptyDomain(t *testing.T) {
	res := NewAgeChecker().CheckAge("  ", 180)

	assert.Equal(t, "domain not provided", res.Err)
	assert.Nil(t, res.IsRecent)
}

func TestCheckEmailAgeInvalidEmail(t *testing.T) {
	res := NewAgeChecker().CheckEmailAge("not-an-email", 0)

	assert.Equal(t, "invalid email", res.Err)
	assert.Equal(t, DefaultMinAgeDays, res.ThresholdDays)
}
