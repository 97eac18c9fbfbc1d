package types

// Quality labels reported by the model for overall project quality.
const (
	QualityLow       = "low"
	QualityModerate  = "moderate"
	QualityHigh      = "high"
	QualityExcellent = "excellent"
)

// Experience levels.
const (
	LevelJunior = "junior"
	LevelMid    = "mid"
	LevelSenior = "senior"
	LevelLead   = "lead"
)

// LanguageUsage is one entry of a profile's most-active-languages list.
type LanguageUsage struct {
	Language    string  `json:"language"`
	Repos       int     `json:"repos"`
	Percentage  float64 `json:"percentage"`
	Proficiency string  `json:"proficiency,omitempty"`
}

// ProfileAnalysis is the model's structured reading of a developer's repositories.
type ProfileAnalysis struct {
	TechnicalSkills          map[string]float64 `json:"technical_skills"`
	MostActiveLanguages      []LanguageUsage    `json:"most_active_languages"`
	ExperienceLevel          string             `json:"experience_level"`
	Specializations          []string           `json:"specializations"`
	ProjectQualityAssessment string             `json:"project_quality_assessment"`
	CollaborationPatterns    []string           `json:"collaboration_patterns"`
	CodePatterns             []string           `json:"code_patterns"`
	AnalysisConfidence       float64            `json:"analysis_confidence"`
	QualityScore             float64            `json:"quality_score"`
}

// CraftsmanshipScore is a 0-100 composite quality indicator with four sub-scores.
type CraftsmanshipScore struct {
	Overall              float64  `json:"overall_score"`
	CodeQuality          float64  `json:"code_quality"`
	Documentation        float64  `json:"documentation"`
	Testing              float64  `json:"testing"`
	ProjectStructure     float64  `json:"project_structure"`
	Strengths            []string `json:"strengths"`
	ImprovementAreas     []string `json:"improvement_areas"`
	Recommendations      []string `json:"recommendations"`
	AnalyzedRepositories int      `json:"analyzed_repositories"`
}

// GeneratedContent is narrative text for a portfolio page.
type GeneratedContent struct {
	Headline            string            `json:"headline"`
	Bio                 string            `json:"bio"`
	SkillsSummary       string            `json:"skills_summary"`
	ProjectDescriptions map[string]string `json:"project_descriptions"`
}

// InterviewQuestion is a question a recruiter can ask about a specific repository or skill.
type InterviewQuestion struct {
	Question   string `json:"question"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Repository string `json:"repository,omitempty"`
}

// RecruiterInsights is a recruiter-facing assessment of a candidate.
type RecruiterInsights struct {
	Summary              string   `json:"summary"`
	Strengths            []string `json:"strengths"`
	Concerns             []string `json:"concerns"`
	RecommendedRoles     []string `json:"recommended_roles"`
	HiringRecommendation string   `json:"hiring_recommendation"`
	Confidence           float64  `json:"confidence"`
}

// NarrativeReport bundles the four analyses requested together for one repository set.
// Fallbacks names the parts that were produced by the deterministic fallback.
type NarrativeReport struct {
	Profile            ProfileAnalysis     `json:"profile"`
	Craftsmanship      CraftsmanshipScore  `json:"craftsmanship"`
	Content            GeneratedContent    `json:"content"`
	InterviewQuestions []InterviewQuestion `json:"interview_questions"`
	Fallbacks          []string            `json:"fallbacks,omitempty"`
}
