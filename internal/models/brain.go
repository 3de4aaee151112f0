package models

import "time"

type ChannelStatus string

const (
	StatusWinner  ChannelStatus = "winner"
	StatusNeutral ChannelStatus = "neutral"
	StatusLoser   ChannelStatus = "loser"
)

type ChannelSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Platform     Platform      `json:"platform"`
	Spend        float64       `json:"spend"`
	Revenue      float64       `json:"revenue"`
	ROAS         float64       `json:"roas"`
	Status       ChannelStatus `json:"status"`
	Contribution float64       `json:"contribution"`
}

// MemoryState is the attribution roll-up.
type MemoryState struct {
	TotalSpend   float64          `json:"totalSpend"`
	TotalRevenue float64          `json:"totalRevenue"`
	BlendedROAS  float64          `json:"blendedRoas"`
	LTVROAS      float64          `json:"ltvRoas"`
	DaysCovered  int              `json:"daysCovered"`
	Channels     []ChannelSummary `json:"channels"`
}

type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

// OracleState is the risk detector output.
type OracleState struct {
	AsOf      time.Time     `json:"asOf"`
	Findings  []RiskFinding `json:"findings"`
	RiskScore float64       `json:"riskScore"`
	RiskLevel RiskLevel     `json:"riskLevel"`
	// entities left out for lack of history
	Skipped   int           `json:"skipped"`
}

type ActionType string

const (
	ActionShiftBudget    ActionType = "shift_budget"
	ActionPauseCreative  ActionType = "pause_creative"
	ActionIncreaseBudget ActionType = "increase_budget"
	ActionFocusRetention ActionType = "focus_retention"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Persona string

const (
	PersonaExecutive Persona = "executive"
	PersonaAnalyst   Persona = "analyst"
	PersonaOperator  Persona = "operator"
)

type ActionRecommendation struct {
	ID                 string             `json:"id"`
	Type               ActionType         `json:"type"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	EstimatedImpactUSD float64            `json:"estimatedImpactUsd"`
	EstimatedImpact    string             `json:"estimatedImpact"`
	Confidence         Level              `json:"confidence"`
	ConfidenceScore    float64            `json:"confidenceScore"`
	Urgency            Level              `json:"urgency"`
	UrgencyScore       float64            `json:"urgencyScore"`
	Score              float64            `json:"score"`
	EntityIDs          []string           `json:"entityIds"`
	Rationale          string             `json:"rationale"`
	Personas           map[Persona]string `json:"personas"`
}

// CuriosityState is the ranker output; Actions holds at most TopN entries.
type CuriosityState struct {
	Actions             []ActionRecommendation `json:"actions"`
	CandidateCount      int                    `json:"candidateCount"`
	TotalOpportunityUSD float64                `json:"totalOpportunityUsd"`
	TotalOpportunity    string                 `json:"totalOpportunity"`
}

// BrainState is the single artifact of one pipeline run.
type BrainState struct {
	OrgID     string         `json:"orgId"`
	Timestamp time.Time      `json:"timestamp"`
	Memory    MemoryState    `json:"memory"`
	Oracle    OracleState    `json:"oracle"`
	Curiosity CuriosityState `json:"curiosity"`
}

// ChannelDayMetrics is one row of the per-day channel listing.
type ChannelDayMetrics struct {
	Date        string  `json:"date"`
	ChannelID   string  `json:"channel_id"`
	ChannelName string  `json:"channel_name"`
	Platform    string  `json:"platform"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
	CPC         float64 `json:"cpc"`
	CPA         float64 `json:"cpa"`
	CVR         float64 `json:"cvr"`
	ROAS        float64 `json:"roas"`
}
