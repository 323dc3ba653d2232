// Package safety screens organization profiles for text that should never
// reach a planner or reasoning prompt: instruction overrides, jailbreak
// phrases, markup or code injection, and credentials or personal data.
package safety

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

// Threat names one screening check.
type Threat string

// Screening checks, in the order they run.
const (
	ThreatPromptInjection Threat = "prompt_injection"
	ThreatJailbreak       Threat = "jailbreak"
	ThreatSuspicious      Threat = "suspicious_patterns"
	ThreatSensitiveData   Threat = "sensitive_data"
)

const maxReportedMatches = 3

var promptInjection = []string{
	`ignore\s+(previous|above|earlier)`,
	`disregard\s+(previous|above|earlier)`,
	`forget\s+(previous|above|earlier|instructions)`,
	`override\s+(previous|above|earlier|instructions)`,
	`bypass\s+(safety|security|restrictions)`,
	`new\s+instructions?:`,
	`system\s*prompt:`,
	`you\s+are\s+now\s+`,
	`act\s+as\s+(if\s+)?you\s+(are|were)`,
	`pretend\s+to\s+be`,
	`roleplay\s+as`,
	`\[system\s*override\]`,
	`\[admin\s*mode\]`,
	`\[developer\s*mode\]`,
	`dan\s+(mode|prompt)`,
	`do\s+anything\s+now`,
	`ignore\s+your\s+(programming|training|guidelines)`,
}

// The bare acronym is matched case-sensitively so a founder named Dan
// does not trip it.
var jailbreak = []string{
	`jailbreak`,
	`(?-i:\bDAN\b)`,
	`anti-?gpt`,
	`hacker\s+mode`,
	`unfiltered\s+mode`,
	`no\s+restrictions`,
	`no\s+limits`,
	`without\s+ethical\s+constraints`,
	`bypass\s+all\s+rules`,
}

var suspicious = []string{
	`<script`,
	`javascript:`,
	`\bon\w+\s*=`,
	`\{\{.*?\}\}`,
	`\$\{.*?\}`,
	`exec\s*\(`,
	`eval\s*\(`,
	`__import__`,
	`subprocess`,
	`os\.system`,
}

var sensitive = []string{
	`\b\d{3}-\d{2}-\d{4}\b`,
	`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`,
	`\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`,
	`password\s*[=:]\s*\S+`,
	`api[_-]?key\s*[=:]\s*\S+`,
	`secret\s*[=:]\s*\S+`,
	`token\s*[=:]\s*\S+`,
}

// check is one compiled screening rule set. Confidence grows with the
// number of matches from base by step per match, capped at ceiling.
type check struct {
	threat  Threat
	re      *regexp.Regexp
	base    float64
	ceiling float64
}

const confidenceStep = 0.1

var checks = []check{
	{threat: ThreatPromptInjection, re: compile(promptInjection), base: 0.5, ceiling: 0.9},
	{threat: ThreatJailbreak, re: compile(jailbreak), base: 0.6, ceiling: 0.95},
	{threat: ThreatSuspicious, re: compile(suspicious), base: 0.5, ceiling: 0.85},
	{threat: ThreatSensitiveData, re: compile(sensitive), base: 0.6, ceiling: 0.9},
}

func compile(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))
}

// Finding is one failed check.
type Finding struct {
	Threat     Threat   `json:"threat"`
	Matches    int      `json:"matches"`
	Examples   []string `json:"examples,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Verdict is the outcome of screening a profile. Score is 10 for a clean
// profile and drops with the confidence of the worst finding.
type Verdict struct {
	Safe     bool      `json:"safe"`
	Score    float64   `json:"score"`
	Findings []Finding `json:"findings,omitempty"`
	Reason   string    `json:"reason"`
}

// Threats lists the failed checks in run order.
func (v Verdict) Threats() []string {
	out := make([]string, len(v.Findings))
	for i, f := range v.Findings {
		out[i] = string(f.Threat)
	}
	return out
}

// Check screens the free-text fields of p.
func Check(p *model.OrganizationProfile) Verdict {
	return CheckText(profileText(p))
}

// CheckText screens an arbitrary text.
func CheckText(text string) Verdict {
	var findings []Finding
	worst := 0.0
	for _, c := range checks {
		matches := c.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		f := Finding{
			Threat:     c.threat,
			Matches:    len(matches),
			Confidence: math.Min(c.ceiling, c.base+float64(len(matches))*confidenceStep),
		}
		// Credentials and personal data are counted, never echoed.
		if c.threat != ThreatSensitiveData {
			f.Examples = matches[:min(len(matches), maxReportedMatches)]
		}
		worst = math.Max(worst, f.Confidence)
		findings = append(findings, f)
	}

	if len(findings) == 0 {
		return Verdict{Safe: true, Score: 10, Reason: "all safety checks passed"}
	}
	reasons := make([]string, len(findings))
	for i, f := range findings {
		if f.Threat == ThreatSensitiveData {
			reasons[i] = fmt.Sprintf("%s: %d instance(s), remove personal data or credentials", f.Threat, f.Matches)
			continue
		}
		reasons[i] = fmt.Sprintf("%s: %q", f.Threat, f.Examples)
	}
	return Verdict{
		Findings: findings,
		Score:    math.Round(math.Max(0, 10-worst*10)*10) / 10,
		Reason:   strings.Join(reasons, "; "),
	}
}

func profileText(p *model.OrganizationProfile) string {
	if p == nil {
		return ""
	}
	parts := []string{p.Name, p.Description, p.Country, p.City}
	for _, d := range p.Domains {
		parts = append(parts, d.Name)
		parts = append(parts, d.SubDomains...)
	}
	parts = append(parts, p.Keywords.Include...)
	parts = append(parts, p.Keywords.Exclude...)
	for _, pp := range p.PastProjects {
		parts = append(parts, pp.Name)
	}
	return strings.Join(parts, "\n")
}
