package models

import "time"

// DateLayout is the canonical format for trading dates throughout the system.
// Trading dates are calendar dates; the time-of-day component is always
// midnight UTC.
const DateLayout = "2006-01-02"

// Stock represents one listed stock in the registry.
// The registry is maintained by an external import process; the aggregation
// engine treats it as read-mostly reference data.
//
// Key Fields:
//   - Code: canonical exchange-prefixed code (e.g. SH600000, SZ000001)
//   - Name: display name
//   - Industry: industry classification from the upstream registry feed
//   - IsActive: delisted stocks stay in the table with IsActive=false
type Stock struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Industry  string    `gorm:"size:64" json:"industry"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Stock
func (Stock) TableName() string {
	return "stocks"
}

// Concept represents a named grouping/tag applied to many stocks
// (an industry, a theme, a regulatory basket).
type Concept struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"size:32;index" json:"category,omitempty"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Concept
func (Concept) TableName() string {
	return "concepts"
}

// StockConceptMembership is the many-to-many relation between stocks and
// concepts. The stock reference is a code string, not a foreign key: the
// membership table is maintained independently of the registry and its codes
// may be bare (600000) or prefixed (SH600000). Every join against the
// registry must go through the engine's code normalizer.
type StockConceptMembership struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode string    `gorm:"size:16;not null;uniqueIndex:idx_membership_pair,priority:1" json:"stock_code"`
	ConceptID int64     `gorm:"not null;index;uniqueIndex:idx_membership_pair,priority:2" json:"concept_id"`
	Weight    *float64  `gorm:"type:decimal(10,4)" json:"weight,omitempty"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for StockConceptMembership
func (StockConceptMembership) TableName() string {
	return "stock_concept_memberships"
}

// TradingRecord is one volume observation for one stock on one trading date.
// Rows are owned by the ingest path; the aggregation engine reads them and
// never writes them. StockCode is stored exactly as the feed supplied it,
// resolution to a canonical stock happens at aggregation time.
type TradingRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode   string    `gorm:"size:16;not null;uniqueIndex:idx_trading_code_date,priority:1" json:"stock_code"`
	TradingDate time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_trading_code_date,priority:2" json:"trading_date"`
	Volume      int64     `gorm:"not null" json:"volume"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for TradingRecord
func (TradingRecord) TableName() string {
	return "trading_records"
}

// ConceptDailySummary is the per-concept rollup for one trading date.
// Fully derived: the recompute replaces all rows for a date as a unit and
// never patches them incrementally.
type ConceptDailySummary struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConceptID   int64     `gorm:"not null;uniqueIndex:idx_summary_concept_date,priority:1" json:"concept_id"`
	TradingDate time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_summary_concept_date,priority:2" json:"trading_date"`
	TotalVolume int64     `gorm:"not null" json:"total_volume"`
	StockCount  int       `gorm:"not null" json:"stock_count"`
	AvgVolume   float64   `gorm:"type:decimal(20,2);not null" json:"avg_volume"`
	MaxVolume   int64     `gorm:"not null" json:"max_volume"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for ConceptDailySummary
func (ConceptDailySummary) TableName() string {
	return "concept_daily_summaries"
}

// StockConceptRanking is one stock's position inside one concept for one
// trading date. StockCode here is always the canonical registry code, not
// the raw feed code. Derived, same replace-on-recompute rule as summaries.
//
// Key Fields:
//   - Rank: dense rank starting at 1, volume descending, ties broken by
//     canonical code ascending
//   - ConceptTotalVolume: denominator snapshot so the API layer never joins
//     back to the summary table
//   - VolumePercentage: 100 * Volume / ConceptTotalVolume, 0 when the
//     concept total is 0
type StockConceptRanking struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode          string    `gorm:"size:16;not null;index;uniqueIndex:idx_ranking_triple,priority:1" json:"stock_code"`
	ConceptID          int64     `gorm:"not null;index;uniqueIndex:idx_ranking_triple,priority:2" json:"concept_id"`
	TradingDate        time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_ranking_triple,priority:3" json:"trading_date"`
	Volume             int64     `gorm:"not null" json:"volume"`
	Rank               int       `gorm:"not null" json:"rank"`
	ConceptTotalVolume int64     `gorm:"not null" json:"concept_total_volume"`
	VolumePercentage   float64   `gorm:"type:decimal(7,4);not null" json:"volume_percentage"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for StockConceptRanking
func (StockConceptRanking) TableName() string {
	return "stock_concept_rankings"
}

// ConceptHighRecord flags whether a concept's aggregate volume on a date is
// a new high over its trailing window. PrevHighVolume/PrevHighDate are nil
// when no prior history existed, which trivially counts as a new high.
type ConceptHighRecord struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConceptID      int64      `gorm:"not null;uniqueIndex:idx_high_concept_date,priority:1" json:"concept_id"`
	TradingDate    time.Time  `gorm:"type:date;not null;index;uniqueIndex:idx_high_concept_date,priority:2" json:"trading_date"`
	TotalVolume    int64      `gorm:"not null" json:"total_volume"`
	IsNewHigh      bool       `gorm:"not null;index" json:"is_new_high"`
	LookbackDays   int        `gorm:"not null" json:"lookback_days"`
	PrevHighVolume *int64     `json:"prev_high_volume,omitempty"`
	PrevHighDate   *time.Time `gorm:"type:date" json:"prev_high_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for ConceptHighRecord
func (ConceptHighRecord) TableName() string {
	return "concept_high_records"
}
