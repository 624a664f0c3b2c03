// Package derived owns the three derived tables produced by a recompute:
// concept_daily_summaries, stock_concept_rankings and concept_high_records.
// Rows for one trading date are only ever replaced as a unit, inside a
// single transaction, so readers never observe a half-written date and a
// failed run never leaves a date cleared but unwritten.
package derived

import (
	"context"
	"fmt"
	"time"

	models "concept-insight/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles database operations for the derived tables
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new derived-data repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceForDate atomically swaps all derived rows for one trading date.
// Any existing summary/ranking/high rows for the date are deleted and the
// staged results inserted in the same transaction.
func (r *Repository) ReplaceForDate(
	ctx context.Context,
	date time.Time,
	summaries []models.ConceptDailySummary,
	rankings []models.StockConceptRanking,
	highs []models.ConceptHighRecord,
) error {
	day := date.Format(models.DateLayout)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trading_date = ?", day).Delete(&models.StockConceptRanking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trading_date = ?", day).Delete(&models.ConceptHighRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trading_date = ?", day).Delete(&models.ConceptDailySummary{}).Error; err != nil {
			return err
		}

		if len(summaries) > 0 {
			if err := tx.CreateInBatches(summaries, 200).Error; err != nil {
				return err
			}
		}
		if len(rankings) > 0 {
			if err := tx.CreateInBatches(rankings, 200).Error; err != nil {
				return err
			}
		}
		if len(highs) > 0 {
			if err := tx.CreateInBatches(highs, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ReplaceForDate: %w", err)
	}
	return nil
}

// DailyTotal is one historical (date, total_volume) observation for a concept
type DailyTotal struct {
	TradingDate time.Time
	TotalVolume int64
}

// PriorTotals loads, for every concept, its summary totals over the trailing
// lookback window: the last lookbackDays distinct trading dates present in
// concept_daily_summaries strictly before the given date. A concept with no
// summary on some of those days simply contributes fewer observations.
// Results per concept are ordered newest first.
func (r *Repository) PriorTotals(ctx context.Context, date time.Time, lookbackDays int) (map[int64][]DailyTotal, error) {
	day := date.Format(models.DateLayout)

	// Window boundary: the Nth distinct trading date before the target
	var windowDates []time.Time
	err := r.db.WithContext(ctx).Model(&models.ConceptDailySummary{}).
		Distinct("trading_date").
		Where("trading_date < ?", day).
		Order("trading_date DESC").
		Limit(lookbackDays).
		Pluck("trading_date", &windowDates).Error
	if err != nil {
		return nil, fmt.Errorf("PriorTotals dates: %w", err)
	}

	totals := make(map[int64][]DailyTotal)
	if len(windowDates) == 0 {
		return totals, nil
	}
	windowStart := windowDates[len(windowDates)-1]

	var rows []models.ConceptDailySummary
	err = r.db.WithContext(ctx).
		Where("trading_date >= ? AND trading_date < ?", windowStart.Format(models.DateLayout), day).
		Order("trading_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PriorTotals rows: %w", err)
	}

	for _, row := range rows {
		totals[row.ConceptID] = append(totals[row.ConceptID], DailyTotal{
			TradingDate: row.TradingDate,
			TotalVolume: row.TotalVolume,
		})
	}
	return totals, nil
}

// GetSummaries returns the per-concept summaries for a date, largest total first
func (r *Repository) GetSummaries(ctx context.Context, date time.Time, limit int) ([]models.ConceptDailySummary, error) {
	var summaries []models.ConceptDailySummary
	query := r.db.WithContext(ctx).
		Where("trading_date = ?", date.Format(models.DateLayout)).
		Order("total_volume DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("GetSummaries: %w", err)
	}
	return summaries, nil
}

// GetRankings returns the ranked members of one concept for a date
func (r *Repository) GetRankings(ctx context.Context, conceptID int64, date time.Time, limit int) ([]models.StockConceptRanking, error) {
	var rankings []models.StockConceptRanking
	query := r.db.WithContext(ctx).
		Where("concept_id = ? AND trading_date = ?", conceptID, date.Format(models.DateLayout)).
		Order("rank ASC, stock_code ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rankings).Error; err != nil {
		return nil, fmt.Errorf("GetRankings: %w", err)
	}
	return rankings, nil
}

// GetHighs returns the high records for a date. When newOnly is set only
// rows flagged is_new_high are returned.
func (r *Repository) GetHighs(ctx context.Context, date time.Time, newOnly bool) ([]models.ConceptHighRecord, error) {
	var highs []models.ConceptHighRecord
	query := r.db.WithContext(ctx).
		Where("trading_date = ?", date.Format(models.DateLayout)).
		Order("total_volume DESC")
	if newOnly {
		query = query.Where("is_new_high = ?", true)
	}
	if err := query.Find(&highs).Error; err != nil {
		return nil, fmt.Errorf("GetHighs: %w", err)
	}
	return highs, nil
}

// GetConceptHistory returns one concept's summary history up to and
// including a date, newest first. Used by the trend endpoints.
func (r *Repository) GetConceptHistory(ctx context.Context, conceptID int64, until time.Time, limit int) ([]models.ConceptDailySummary, error) {
	var rows []models.ConceptDailySummary
	query := r.db.WithContext(ctx).
		Where("concept_id = ? AND trading_date <= ?", conceptID, until.Format(models.DateLayout)).
		Order("trading_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetConceptHistory: %w", err)
	}
	return rows, nil
}
