package domaincheck

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@([^@\s]+\.[^@\s]+)$`)

// ExtractDomain pulls the lowercased domain out of an email address.
// Returns "" for anything that does not look like an email.
func ExtractDomain(email string) string {
	m := emailRe.FindStringSubmatch(strings.TrimSpace(email))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// DefaultNonCorporateDomains lists free-mail providers. An entity registered
// under one of these has no corporate domain to vouch for it.
var DefaultNonCorporateDomains = []string{
	"gmail.com",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"msn.com",
	"yahoo.com",
	"yahoo.com.br",
	"icloud.com",
	"aol.com",
	"bol.com.br",
	"uol.com.br",
	"terra.com.br",
	"ig.com.br",
	"globo.com",
	"protonmail.com",
	"proton.me",
}

// IsCorporateDomain reports whether the domain is outside the non-corporate
// list. Pass nil to use the default list. An empty domain is not corporate.
func IsCorporateDomain(domain string, nonCorporate []string) bool {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "www.")
	if d == "" {
		return false
	}
	if nonCorporate == nil {
		nonCorporate = DefaultNonCorporateDomains
	}
	for _, nc := range nonCorporate {
		if d == strings.ToLower(strings.TrimSpace(nc)) {
			return false
		}
	}
	return true
}
