package model

// Eligibility check names used as message keys.
const (
	CheckType       = "type"
	CheckCountry    = "country"
	CheckBudget     = "budget"
	CheckTRL        = "trl"
	CheckConsortium = "consortium"
	CheckSME        = "sme"
)

// EligibilityResult is the outcome of the hard-constraint gate.
// SMEEncouraged and SMERequired are informational and never gate AllPassed.
type EligibilityResult struct {
	TypeOK        bool              `json:"type_ok"`
	CountryOK     bool              `json:"country_ok"`
	BudgetOK      bool              `json:"budget_ok"`
	TRLOK         bool              `json:"trl_ok"`
	ConsortiumOK  bool              `json:"consortium_ok"`
	SMEEncouraged bool              `json:"sme_encouraged"`
	SMERequired   bool              `json:"sme_required"`
	AllPassed     bool              `json:"all_passed"`
	Messages      map[string]string `json:"messages"`
}

// QualityLevel grades how complete a record's data is.
type QualityLevel string

// Quality levels.
const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// DataQuality is the data-completeness assessment of one record.
type DataQuality struct {
	Level    QualityLevel `json:"level"`
	Coverage float64      `json:"coverage"`
	Reasons  []string     `json:"reasons,omitempty"`
}

// Recommendation is the action label derived from the final score.
type Recommendation string

// Recommendations, best first.
const (
	RecommendApply    Recommendation = "apply"
	RecommendConsider Recommendation = "consider"
	RecommendMonitor  Recommendation = "monitor"
	RecommendSkip     Recommendation = "skip"
)

// ScoringMode records which strategy produced the semantic sub-scores.
type ScoringMode string

// Scoring modes. ModeNeutral marks a substituted score after a failure.
const (
	ModeAssisted      ScoringMode = "assisted"
	ModeDeterministic ScoringMode = "deterministic"
	ModeNeutral       ScoringMode = "neutral"
)

// ScoreBreakdown is the weighted multi-criteria score of one record.
type ScoreBreakdown struct {
	DomainMatch       float64        `json:"domain_match"`
	KeywordMatch      float64        `json:"keyword_match"`
	EligibilityFit    float64        `json:"eligibility_fit"`
	BudgetFeasibility float64        `json:"budget_feasibility"`
	StrategicValue    float64        `json:"strategic_value"`
	DeadlineComfort   float64        `json:"deadline_comfort"`
	Raw               float64        `json:"raw_total"`
	Quality           DataQuality    `json:"data_quality"`
	Penalty           float64        `json:"penalty"`
	Total             float64        `json:"total"`
	Recommendation    Recommendation `json:"recommendation"`
	Mode              ScoringMode    `json:"mode"`
}

// DegradationKind names the collaborator or step that degraded.
type DegradationKind string

// Degradation kinds.
const (
	DegradedReasoning DegradationKind = "reasoning"
	DegradedScoring   DegradationKind = "scoring"
	DegradedRetrieval DegradationKind = "retrieval"
)

// Degradation records a recovered failure that lowered result confidence.
type Degradation struct {
	Kind   DegradationKind `json:"kind"`
	Reason string          `json:"reason"`
}

// AnalyzedOpportunity is the immutable analysis of one record in one iteration.
type AnalyzedOpportunity struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	URL          string            `json:"url,omitempty"`
	Source       string            `json:"source,omitempty"`
	Programme    string            `json:"programme,omitempty"`
	Deadline     string            `json:"deadline,omitempty"`
	HasBudget    bool              `json:"has_budget"`
	Eligibility  EligibilityResult `json:"eligibility"`
	Score        ScoreBreakdown    `json:"score"`
	Insights     *Insights         `json:"insights,omitempty"`
	Iteration    int               `json:"iteration"`
	Degradations []Degradation     `json:"degradations,omitempty"`
}

// Degraded reports whether any step of the analysis fell back.
func (a AnalyzedOpportunity) Degraded() bool { return len(a.Degradations) > 0 }

// Decision is the reflection outcome.
type Decision string

// Reflection decisions.
const (
	DecisionFinalize Decision = "finalize"
	DecisionExpand   Decision = "expand"
	DecisionRefine   Decision = "refine"
)

// ReflectionStats summarizes one iteration's batch.
type ReflectionStats struct {
	Total          int      `json:"total_results"`
	High           int      `json:"high_scores"`
	Medium         int      `json:"medium_scores"`
	Low            int      `json:"low_scores"`
	Average        float64  `json:"average_score"`
	Max            float64  `json:"max_score"`
	Coverage       float64  `json:"coverage"`
	SourcesCovered []string `json:"sources_covered,omitempty"`
}

// ReflectionDecision is the verdict of the reflection module.
type ReflectionDecision struct {
	Decision        Decision        `json:"decision"`
	Reasoning       string          `json:"reasoning"`
	Recommendations []string        `json:"recommendations"`
	Stats           ReflectionStats `json:"stats"`
}
