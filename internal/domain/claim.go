package domain

import (
	"time"

	"github.com/google/uuid"
)

type ClaimStatus string

const (
	StatusUnverified ClaimStatus = "unverified"
	StatusDisputed   ClaimStatus = "disputed"
)

func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case StatusUnverified, StatusDisputed:
		return true
	}
	return false
}

// CanTransition reports whether a status change is allowed. The only legal
// transition is unverified -> disputed; disputed is terminal.
func (s ClaimStatus) CanTransition(to ClaimStatus) bool {
	return s == StatusUnverified && to == StatusDisputed
}

type AlertLevel string

const (
	AlertLow    AlertLevel = "low"
	AlertMedium AlertLevel = "medium"
	AlertHigh   AlertLevel = "high"
)

type Stance string

const (
	StanceSupport    Stance = "support"
	StanceContradict Stance = "contradict"
	StanceMention    Stance = "mention"
)

func ValidStance(s string) bool {
	switch Stance(s) {
	case StanceSupport, StanceContradict, StanceMention:
		return true
	}
	return false
}

type CredibilityTier string

const (
	TierA CredibilityTier = "A"
	TierB CredibilityTier = "B"
	TierC CredibilityTier = "C"
)

// Claim is the canonical, deduplicated representative of all near-duplicate
// mentions of one real-world assertion. Linked evidence and media live in
// their own tables keyed by claim id.
type Claim struct {
	ID              uuid.UUID   `json:"id"`
	ClaimText       string      `json:"claim_text"`
	Embedding       []float32   `json:"-"`
	FirstSeenTS     time.Time   `json:"first_seen_ts"`
	LastSeenTS      time.Time   `json:"last_seen_ts"`
	MentionCount    int         `json:"mention_count"`
	SourceTypes     []string    `json:"source_types"`
	SupportCount    int         `json:"support_count"`
	ContradictCount int         `json:"contradict_count"`
	Confidence      float64     `json:"confidence"`
	Status          ClaimStatus `json:"status"`

	// Derived metrics, owned by the evolution agent. Recomputed each run,
	// never accumulated.
	TrendScore         float64    `json:"trend_score"`
	ContradictionRatio float64    `json:"contradiction_ratio"`
	MemeVariantCount   int        `json:"meme_variant_count"`
	VolatilityScore    float64    `json:"volatility_score"`
	AlertLevel         AlertLevel `json:"alert_level"`
	LastAgentUpdateTS  *time.Time `json:"last_agent_update_ts,omitempty"`
}

// NewClaim returns a claim with neutral defaults: unknown confidence, no
// evidence, all derived metrics zeroed.
func NewClaim(text string, embedding []float32, sourceType string, now time.Time) *Claim {
	return &Claim{
		ID:           uuid.New(),
		ClaimText:    text,
		Embedding:    embedding,
		FirstSeenTS:  now,
		LastSeenTS:   now,
		MentionCount: 1,
		SourceTypes:  []string{sourceType},
		Confidence:   0.5,
		Status:       StatusUnverified,
		AlertLevel:   AlertLow,
	}
}

// Derived-metric thresholds and windows.
const (
	TrendWindowDays          = 7
	ContradictionWindowDays  = 30
	VolatilityWindowDays     = 30
	ContradictionThreshold   = 0.6
	VolatilityEventCap       = 5
	VolatilityAlertThreshold = 0.7
	TrendAlertThreshold      = 6
)

const ratioEpsilon = 1e-6

// ContradictionRatio is the fraction of recent evidence that contradicts a
// claim. The epsilon keeps the no-evidence case at ~0 instead of dividing by
// zero.
func ContradictionRatio(support, contradict int) float64 {
	return float64(contradict) / (float64(support+contradict) + ratioEpsilon)
}

// VolatilityScore normalizes a windowed confidence-event count into [0,1].
func VolatilityScore(eventCount int) float64 {
	if eventCount <= 0 {
		return 0
	}
	score := float64(eventCount) / float64(VolatilityEventCap)
	if score > 1 {
		return 1
	}
	return score
}

// DeriveAlertLevel maps the three derived scores to an alert level. Pure
// function, first match wins; alert_level is never set any other way.
func DeriveAlertLevel(trend, contradiction, volatility float64) AlertLevel {
	if contradiction >= ContradictionThreshold && trend >= 3 {
		return AlertHigh
	}
	if contradiction >= ContradictionThreshold || trend >= TrendAlertThreshold {
		return AlertMedium
	}
	if volatility >= VolatilityAlertThreshold && trend >= 2 {
		return AlertMedium
	}
	return AlertLow
}

// DerivedMetrics carries one agent pass's recomputed values for a claim.
type DerivedMetrics struct {
	TrendScore         float64
	ContradictionRatio float64
	MemeVariantCount   int
	VolatilityScore    float64
	AlertLevel         AlertLevel
	UpdatedAt          time.Time
}
