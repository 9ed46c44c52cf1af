package domain

import "time"

// OpportunityRecord is the flattened, persisted form of a detected
// cross-exchange opportunity.
type OpportunityRecord struct {
	ID                   string    `json:"id"`
	CycleID              string    `json:"cycle_id"`
	PairKey              string    `json:"pair_key"`
	Exchange1            Exchange  `json:"exchange1"`
	MarketID1            string    `json:"market_id1"`
	Exchange2            Exchange  `json:"exchange2"`
	MarketID2            string    `json:"market_id2"`
	Direction            string    `json:"direction"`
	TotalCost            float64   `json:"total_cost"`
	GrossArbitrage       float64   `json:"gross_arbitrage"`
	NetArbitrage         float64   `json:"net_arbitrage"`
	ProfitPercent        float64   `json:"profit_percent"`
	ProfitDollars        float64   `json:"profit_dollars"`
	MaxSize              float64   `json:"max_size"`
	TotalFees            float64   `json:"total_fees"`
	Confidence           float64   `json:"confidence"`
	ValidationConfidence float64   `json:"validation_confidence"`
	DepthQuality         string    `json:"depth_quality"`
	ResolutionScore      float64   `json:"resolution_score"`
	Tradeable            bool      `json:"tradeable"`
	Valid                bool      `json:"valid"`
	Notes                []string  `json:"notes"`
	DetectedAt           time.Time `json:"detected_at"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// ScanSummary is the persisted outline of one scan cycle.
type ScanSummary struct {
	CycleID       string         `json:"cycle_id"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
	Evaluated     int            `json:"evaluated"`
	Opportunities int            `json:"opportunities"`
	Failures      int            `json:"failures"`
	TimedOut      int            `json:"timed_out"`
	Rejections    map[string]int `json:"rejections"`
}
