// Package trading owns the trading_records table: the raw per-stock daily
// volume observations delivered by the upload/import layer. The aggregation
// engine reads these rows and never writes them; all writes happen here,
// in the ingest path. Withdrawing a date also clears its derived rows in
// the same transaction, see PurgeForDate.
package trading

import (
	"context"
	"fmt"
	"time"

	"concept-insight/database"
	models "concept-insight/database/models_pkg"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Repository handles database operations for trading records
type Repository struct {
	db   *gorm.DB
	bulk *database.BulkDB // optional lib/pq pool for COPY, nil disables COPY
}

// NewRepository creates a new trading records repository. bulk may be nil,
// in which case imports fall back to batched inserts through GORM.
func NewRepository(db *gorm.DB, bulk *database.BulkDB) *Repository {
	return &Repository{db: db, bulk: bulk}
}

// RecordsForDate retrieves all trading records for one trading date
func (r *Repository) RecordsForDate(ctx context.Context, date time.Time) ([]models.TradingRecord, error) {
	var records []models.TradingRecord
	err := r.db.WithContext(ctx).
		Where("trading_date = ?", date.Format(models.DateLayout)).
		Order("stock_code ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("RecordsForDate: %w", err)
	}
	return records, nil
}

// CountForDate returns how many records exist for a trading date
func (r *Repository) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TradingRecord{}).
		Where("trading_date = ?", date.Format(models.DateLayout)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("CountForDate: %w", err)
	}
	return count, nil
}

// DistinctDates returns the trading dates present in the table, ascending
func (r *Repository) DistinctDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&models.TradingRecord{}).
		Distinct("trading_date").
		Order("trading_date ASC").
		Pluck("trading_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("DistinctDates: %w", err)
	}
	return dates, nil
}

// copyThreshold is the batch size above which ReplaceForDate switches from
// GORM batched inserts to a lib/pq COPY
const copyThreshold = 500

// ReplaceForDate replaces all trading records for one date with the given
// batch. Delete and insert run in one transaction so a failed import never
// leaves the date empty. This is the idempotent re-import entry point: the
// same date can be loaded repeatedly and the last batch wins.
func (r *Repository) ReplaceForDate(ctx context.Context, date time.Time, records []models.TradingRecord) error {
	if len(records) == 0 {
		return database.NewValidationError("records", "empty batch for "+date.Format(models.DateLayout))
	}

	day := date.Format(models.DateLayout)

	if r.bulk != nil && len(records) >= copyThreshold {
		return r.replaceWithCopy(ctx, day, records)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trading_date = ?", day).Delete(&models.TradingRecord{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return fmt.Errorf("ReplaceForDate: %w", err)
	}
	return nil
}

// replaceWithCopy does the delete+insert through the lib/pq pool using
// Postgres COPY, which is considerably faster for full-market batches
// (thousands of rows per date).
func (r *Repository) replaceWithCopy(ctx context.Context, day string, records []models.TradingRecord) error {
	tx, err := r.bulk.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replaceWithCopy begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM trading_records WHERE trading_date = $1", day); err != nil {
		return fmt.Errorf("replaceWithCopy delete: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("trading_records", "stock_code", "trading_date", "volume", "created_at"))
	if err != nil {
		return fmt.Errorf("replaceWithCopy prepare: %w", err)
	}

	now := time.Now()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.StockCode, day, rec.Volume, now); err != nil {
			stmt.Close()
			return fmt.Errorf("replaceWithCopy exec: %w", err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("replaceWithCopy flush: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("replaceWithCopy close: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replaceWithCopy commit: %w", err)
	}
	return nil
}

// PurgeForDate withdraws a trading date entirely: its source records and
// the derived rows computed from them, in one transaction. Derived rows
// must never outlive their inputs, so the four deletes commit or roll back
// together. Returns the number of source records removed.
func (r *Repository) PurgeForDate(ctx context.Context, date time.Time) (int64, error) {
	day := date.Format(models.DateLayout)

	var deleted int64
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
		res := tx.Where("trading_date = ?", day).Delete(&models.TradingRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("PurgeForDate: %w", err)
	}
	return deleted, nil
}
