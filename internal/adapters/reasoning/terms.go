package reasoning

import "strings"

// relatedTerms lists vocabulary that signals a weak link to a domain.
var relatedTerms = map[string][]string{ //nolint:gochecknoglobals // read-only table
	"artificial intelligence": {"ai", "machine learning", "ml", "deep learning", "neural network"},
	"cybersecurity":           {"security", "cyber", "threat", "protection", "nist", "iso 27001"},
	"digital transformation":  {"digitization", "digitalization", "industry 4.0", "smart"},
	"cloud":                   {"aws", "azure", "gcp", "saas", "paas", "iaas"},
	"data":                    {"big data", "analytics", "data science", "business intelligence"},
}

// stopwords never count as a shared significant word.
var stopwords = map[string]struct{}{ //nolint:gochecknoglobals // read-only table
	"and": {}, "for": {}, "the": {}, "with": {}, "from": {}, "into": {},
	"based": {}, "systems": {}, "services": {}, "solutions": {}, "technologies": {},
}

const minSignificantWord = 4

// RelatedTerms returns the related vocabulary of a domain name.
func RelatedTerms(domain string) []string {
	return relatedTerms[strings.ToLower(strings.TrimSpace(domain))]
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(w) < minSignificantWord {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}
