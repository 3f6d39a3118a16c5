package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCreate     EventType = "create"
	EventMerge      EventType = "merge"
	EventReinforce  EventType = "reinforce"
	EventConfidence EventType = "confidence"
	EventDecay      EventType = "decay"

	EventAgentReinforce       EventType = "agent_reinforce"
	EventAgentContradictShift EventType = "agent_contradict_shift"
	EventAgentStatusUpdate    EventType = "agent_status_update"
	EventAgentTrendAlert      EventType = "agent_trend_alert"
	EventAgentVolatility      EventType = "agent_volatility"
	EventAgentDecayRun        EventType = "agent_decay_run"
)

// SystemClaimID scopes ledger entries for global jobs that act on no single
// claim (e.g. the decay sweep).
const SystemClaimID = "system"

// Event is one append-only ledger entry. The ledger is the system of record
// for why any score changed; claim fields are a derived cache of it. Entries
// are never updated or deleted.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ClaimID   string    `json:"claim_id"`
	EventType EventType `json:"event_type"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason"`
	SourceID  string    `json:"source_id,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
}

// AgentProgress is the per-job watermark row. Created on first run, updated
// at the end of every run including empty ones, never deleted.
type AgentProgress struct {
	AgentName string          `json:"agent_name"`
	LastRunTS time.Time       `json:"last_run_ts"`
	Cursor    string          `json:"cursor,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

// RunSummary is what one evolution-agent pass reports, and what gets stored
// as the progress row's extra blob.
type RunSummary struct {
	ClaimsProcessed int `json:"claims_processed"`
	ClaimsUpdated   int `json:"claims_updated"`
	ClaimsDisputed  int `json:"claims_disputed"`
	HighAlerts      int `json:"high_alerts"`
	MediumAlerts    int `json:"medium_alerts"`
	VolatilityFlags int `json:"volatility_flags"`
}
