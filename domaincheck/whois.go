package domaincheck

import (
	"fmt"
	"log"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
)

// DefaultMinAgeDays is the registrar-age threshold below which a domain is
// considered recently registered.
const DefaultMinAgeDays = 180

// AgeResult is the outcome of a WHOIS registrar-age check. Err is informative
// only; age-check failures are never fatal and simply omit the
// recently-registered signal (IsRecent nil).
type AgeResult struct {
	Domain        string     `json:"domain"`
	CreationDate  *time.Time `json:"creation_date,omitempty"`
	AgeDays       *int       `json:"age_days,omitempty"`
	ThresholdDays int        `json:"threshold_days"`
	IsRecent      *bool      `json:"is_recent,omitempty"`
	Err           string     `json:"error,omitempty"`
}

// AgeChecker performs WHOIS lookups to determine domain registration age.
type AgeChecker struct {
	// lookup is swappable in tests; defaults to the real WHOIS client.
	lookup func(domain string) (string, error)
}

func NewAgeChecker() *AgeChecker {
	return &AgeChecker{lookup: func(domain string) (string, error) {
		return whois.Whois(domain)
	}}
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02/01/2006",
}

func parseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range whoisDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// creationDate resolves the WHOIS creation date for a domain, retrying the
// parent domain for unparseable subdomain records.
func (c *AgeChecker) creationDate(domain string) (time.Time, error) {
	raw, err := c.lookup(domain)
	if err != nil {
		return time.Time{}, fmt.Errorf("whois lookup: %w", err)
	}

	p, err := parser.Parse(raw)
	if err != nil || p.Domain == nil {
		parts := strings.Split(domain, ".")
		if len(parts) > 2 {
			return c.creationDate(strings.Join(parts[1:], "."))
		}
		return time.Time{}, fmt.Errorf("unparseable whois record for %s", domain)
	}

	created, ok := parseWhoisDate(p.Domain.CreatedDate)
	if !ok {
		return time.Time{}, fmt.Errorf("no creation date in whois record for %s", domain)
	}
	return created, nil
}

// CheckAge determines how old a domain registration is and whether it falls
// under the configured threshold. minAgeDays <= 0 uses the default.
func (c *AgeChecker) CheckAge(domain string, minAgeDays int) AgeResult {
	if minAgeDays <= 0 {
		minAgeDays = DefaultMinAgeDays
	}
	out := AgeResult{Domain: domain, ThresholdDays: minAgeDays}

	if strings.TrimSpace(domain) == "" {
		out.Err = "domain not provided"
		return out
	}

	created, err := c.creationDate(domain)
	if err != nil {
		log.Printf("[whois] age check failed for %s: %v", domain, err)
		out.Err = err.Error()
		return out
	}

	createdUTC := created.UTC()
	ageDays := int(time.Since(createdUTC).Hours() / 24)
	recent := ageDays < minAgeDays

	out.CreationDate = &createdUTC
	out.AgeDays = &ageDays
	out.IsRecent = &recent
	return out
}

// CheckEmailAge is a convenience wrapper that extracts the email's domain
// first. An invalid email yields an error result, never a panic.
func (c *AgeChecker) CheckEmailAge(email string, minAgeDays int) AgeResult {
	domain := ExtractDomain(email)
	if domain == "" {
		if minAgeDays <= 0 {
			minAgeDays = DefaultMinAgeDays
		}
		return AgeResult{ThresholdDays: minAgeDays, Err: "invalid email"}
	}
	return c.CheckAge(domain, minAgeDays)
}
