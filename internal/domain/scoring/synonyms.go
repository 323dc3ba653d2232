package scoring

import "strings"

// equivalents expands a term into the set of phrasings treated as the same
// concept. Keys and values are lower case.
var equivalents = map[string][]string{ //nolint:gochecknoglobals // read-only lookup table
	"ai":                          {"ai", "artificial intelligence", "machine intelligence", "cognitive computing"},
	"artificial intelligence":     {"ai", "artificial intelligence", "machine intelligence"},
	"machine learning":            {"machine learning", "ml", "deep learning", "neural networks", "predictive modeling"},
	"ml":                          {"machine learning", "ml", "deep learning"},
	"deep learning":               {"deep learning", "neural networks", "ml", "machine learning"},
	"nlp":                         {"nlp", "natural language processing", "text analysis", "language understanding", "computational linguistics"},
	"natural language processing": {"nlp", "natural language processing", "text analysis"},
	"llm":                         {"llm", "large language model", "foundation model", "generative ai", "gpt"},
	"large language model":        {"llm", "large language model", "foundation model"},
	"generative ai":               {"generative ai", "genai", "llm", "foundation models"},
	"cybersecurity":               {"cybersecurity", "cyber security", "information security", "infosec", "it security", "network security"},
	"security":                    {"security", "cybersecurity", "information security", "protection"},
	"threat detection":            {"threat detection", "threat intelligence", "intrusion detection", "security monitoring"},
	"cloud":                       {"cloud", "cloud computing", "aws", "azure", "gcp", "iaas", "paas", "saas"},
	"automation":                  {"automation", "automated", "robotic process automation", "rpa", "orchestration"},
	"digital transformation":      {"digital transformation", "digitization", "digitalization", "industry 4.0"},
}

// Expand returns the equivalents of term, or the term itself when the table
// has no entry. The result is lower case.
func Expand(term string) []string {
	t := strings.ToLower(strings.TrimSpace(term))
	if eq, ok := equivalents[t]; ok {
		return eq
	}
	if t == "" {
		return nil
	}
	return []string{t}
}
