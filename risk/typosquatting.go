package risk

import (
	"fmt"
	"strings"
)

// DefaultSimilarityThreshold marks domains at or above this normalized
// similarity as probable look-alikes.
const DefaultSimilarityThreshold = 0.8

// TyposquattingResult is the pure output of a domain comparison.
type TyposquattingResult struct {
	IsSuspicious          bool     `json:"is_suspicious"`
	Similarity            float64  `json:"similarity"`
	EditDistance          *int     `json:"edit_distance"`
	DetectedSubstitutions []string `json:"detected_substitutions"`
	RegisteredDomain      string   `json:"registered_domain"`
	ReferenceDomain       string   `json:"reference_domain"`
	Message               string   `json:"message"`
}

// NormalizeDomain lowercases, trims whitespace and drops a leading "www.".
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}

// levenshtein computes the classic dynamic-programming edit distance over
// Unicode code points, with insertion/deletion/substitution cost 1 each.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			m := ins
			if del < m {
				m = del
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Leetspeak-style character substitutions commonly used in look-alike
// domains. Checked in both directions.
var leetSubstitutions = map[rune][]rune{
	'o': {'0'},
	'i': {'1'},
	'l': {'1'},
	'e': {'3'},
	'a': {'4'},
	's': {'5'},
	'g': {'6', '9'},
	't': {'7'},
	'b': {'8'},
}

func isLeetPair(a, b rune) bool {
	for _, d := range leetSubstitutions[a] {
		if d == b {
			return true
		}
	}
	for _, d := range leetSubstitutions[b] {
		if d == a {
			return true
		}
	}
	return false
}

// detectSubstitutions scans equal-length domains position by position for
// known leetspeak swaps. Purely diagnostic; it never affects IsSuspicious.
func detectSubstitutions(a, b string) []string {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) != len(rb) {
		return nil
	}
	var subs []string
	for i := range ra {
		if ra[i] != rb[i] && isLeetPair(ra[i], rb[i]) {
			subs = append(subs, fmt.Sprintf("position %d: '%c' -> '%c'", i, ra[i], rb[i]))
		}
	}
	return subs
}

// DetectTyposquatting compares the registered email domain against the
// registry's on-file domain. Identical domains are always reported as not
// suspicious even though their similarity is 1.0.
func DetectTyposquatting(registeredDomain, referenceDomain string, threshold float64) TyposquattingResult {
	if registeredDomain == "" || referenceDomain == "" {
		return TyposquattingResult{
			IsSuspicious:     false,
			Similarity:       0.0,
			RegisteredDomain: registeredDomain,
			ReferenceDomain:  referenceDomain,
			Message:          "domains not provided",
		}
	}

	d1 := NormalizeDomain(registeredDomain)
	d2 := NormalizeDomain(referenceDomain)

	if d1 == d2 {
		zero := 0
		return TyposquattingResult{
			IsSuspicious:     false,
			Similarity:       1.0,
			EditDistance:     &zero,
			RegisteredDomain: d1,
			ReferenceDomain:  d2,
			Message:          "identical domains",
		}
	}

	distance := levenshtein(d1, d2)

	maxLen := len([]rune(d1))
	if l := len([]rune(d2)); l > maxLen {
		maxLen = l
	}
	similarity := 0.0
	if maxLen > 0 {
		similarity = 1.0 - float64(distance)/float64(maxLen)
	}

	subs := detectSubstitutions(d1, d2)
	suspicious := similarity >= threshold

	var msg string
	switch {
	case suspicious && len(subs) > 0:
		msg = fmt.Sprintf("similar domain detected (similarity %.1f%%), likely substitutions: %s",
			similarity*100, strings.Join(subs, ", "))
	case suspicious:
		msg = fmt.Sprintf("similar domain detected (similarity %.1f%%, distance %d)",
			similarity*100, distance)
	default:
		msg = fmt.Sprintf("distinct domains (similarity %.1f%%)", similarity*100)
	}

	return TyposquattingResult{
		IsSuspicious:          suspicious,
		Similarity:            similarity,
		EditDistance:          &distance,
		DetectedSubstitutions: subs,
		RegisteredDomain:      d1,
		ReferenceDomain:       d2,
		Message:               msg,
	}
}
