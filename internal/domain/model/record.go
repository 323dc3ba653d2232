package model

// Programme carries the call's programme metadata. Dates are kept as the
// source wrote them and parsed where needed.
type Programme struct {
	Name          string `json:"name,omitempty" yaml:"name"`
	Call          string `json:"call,omitempty" yaml:"call"`
	ActionType    string `json:"action_type,omitempty" yaml:"action_type"`
	DeadlineModel string `json:"deadline_model,omitempty" yaml:"deadline_model"`
	OpeningDate   string `json:"opening_date,omitempty" yaml:"opening_date"`
	Deadline      string `json:"deadline,omitempty" yaml:"deadline"`
}

// Content holds the free-text sections of a record.
type Content struct {
	Description    string `json:"description,omitempty" yaml:"description"`
	Destination    string `json:"destination,omitempty" yaml:"destination"`
	Conditions     string `json:"conditions,omitempty" yaml:"conditions"`
	BudgetOverview string `json:"budget_overview,omitempty" yaml:"budget_overview"`
}

// Consortium is the partnership requirement of a call.
type Consortium struct {
	MinPartners  int `json:"min_partners,omitempty" yaml:"min_partners"`
	MinCountries int `json:"min_countries,omitempty" yaml:"min_countries"`
}

// OpportunityRecord is one funding or tender item returned by a retriever.
// Structured fields are optional; nil and empty mean "not stated".
type OpportunityRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url,omitempty" yaml:"url"`
	Status    string    `json:"status,omitempty" yaml:"status"`
	Source    string    `json:"source,omitempty" yaml:"source"`
	Programme Programme `json:"programme" yaml:"programme"`
	Content   Content   `json:"content" yaml:"content"`

	RequiredDomains   []string     `json:"required_domains,omitempty" yaml:"required_domains"`
	Keywords          []string     `json:"keywords,omitempty" yaml:"keywords"`
	EligibleCountries []string     `json:"eligible_countries,omitempty" yaml:"eligible_countries"`
	EligibleOrgTypes  []string     `json:"eligible_organization_types,omitempty" yaml:"eligible_organization_types"`
	Budget            *BudgetRange `json:"budget_per_project,omitempty" yaml:"budget_per_project"`
	TRL               string       `json:"trl,omitempty" yaml:"trl"`
	Consortium        *Consortium  `json:"consortium,omitempty" yaml:"consortium"`
	FundingRate       string       `json:"funding_rate,omitempty" yaml:"funding_rate"`
}

// Plan is the retrieval strategy produced by a planner.
type Plan struct {
	Queries        []string          `json:"search_queries"`
	TargetPrograms []string          `json:"target_programs,omitempty"`
	TargetSources  []string          `json:"target_sources,omitempty"`
	EstimatedCalls int               `json:"estimated_calls"`
	Reasoning      string            `json:"reasoning,omitempty"`
	Filters        map[string]string `json:"filter_config,omitempty"`
}

// Strength labels how well a profile domain covers a requirement.
type Strength string

// Match strengths.
const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Confidence is the reasoning service's self-reported certainty.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DomainMatch pairs a profile domain with a call requirement.
type DomainMatch struct {
	Domain      string   `json:"domain"`
	Requirement string   `json:"requirement"`
	Strength    Strength `json:"strength"`
	Reasoning   string   `json:"reasoning,omitempty"`
}

// Insights is the qualitative analysis of one record for one profile.
type Insights struct {
	MatchSummary         string        `json:"match_summary"`
	DomainMatches        []DomainMatch `json:"domain_matches"`
	KeywordHits          []string      `json:"keyword_hits"`
	RelevantPastProjects []string      `json:"relevant_past_projects"`
	SuggestedPartners    []string      `json:"suggested_partners"`
	EstimatedEffort      string        `json:"estimated_effort"`
	Confidence           Confidence    `json:"confidence"`
}
