// Package registry provides read access to the stock registry and the
// concept membership tables. Both are maintained by external admin/import
// processes; the aggregation engine only ever reads them.
package registry

import (
	"context"
	"errors"
	"fmt"

	"concept-insight/database"
	models "concept-insight/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for reference data
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new registry repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ActiveStocks returns every active stock in the registry
func (r *Repository) ActiveStocks(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("ActiveStocks: %w", err)
	}
	return stocks, nil
}

// ActiveMemberships returns every active stock/concept membership row whose
// concept is itself active
func (r *Repository) ActiveMemberships(ctx context.Context) ([]models.StockConceptMembership, error) {
	var memberships []models.StockConceptMembership
	err := r.db.WithContext(ctx).
		Joins("JOIN concepts ON concepts.id = stock_concept_memberships.concept_id").
		Where("stock_concept_memberships.is_active = ? AND concepts.is_active = ?", true, true).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("ActiveMemberships: %w", err)
	}
	return memberships, nil
}

// GetConcepts returns concepts with optional category filter
func (r *Repository) GetConcepts(ctx context.Context, category string, activeOnly bool) ([]models.Concept, error) {
	var concepts []models.Concept
	query := r.db.WithContext(ctx).Order("name ASC")

	if category != "" {
		query = query.Where("category = ?", category)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&concepts).Error; err != nil {
		return nil, fmt.Errorf("GetConcepts: %w", err)
	}
	return concepts, nil
}

// GetConceptByName retrieves a single concept by its unique name
func (r *Repository) GetConceptByName(ctx context.Context, name string) (*models.Concept, error) {
	var concept models.Concept
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&concept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, database.NewNotFoundError("concept", name)
	}
	if err != nil {
		return nil, fmt.Errorf("GetConceptByName: %w", err)
	}
	return &concept, nil
}

// UpsertStocks inserts or updates registry rows by code. Used by the
// registry import job, not by the recompute path.
func (r *Repository) UpsertStocks(ctx context.Context, stocks []models.Stock) error {
	if len(stocks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "industry", "is_active", "updated_at"}),
	}).CreateInBatches(stocks, 200).Error
	if err != nil {
		return fmt.Errorf("UpsertStocks: %w", err)
	}
	return nil
}

// UpsertConcepts inserts or updates concepts by their unique name
func (r *Repository) UpsertConcepts(ctx context.Context, concepts []models.Concept) error {
	if len(concepts) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "category", "is_active", "updated_at"}),
	}).CreateInBatches(concepts, 200).Error
	if err != nil {
		return fmt.Errorf("UpsertConcepts: %w", err)
	}
	return nil
}

// UpsertMemberships inserts membership pairs, ignoring duplicates of the
// unique (stock_code, concept_id) pair
func (r *Repository) UpsertMemberships(ctx context.Context, memberships []models.StockConceptMembership) error {
	if len(memberships) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}, {Name: "concept_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight", "is_active"}),
	}).CreateInBatches(memberships, 200).Error
	if err != nil {
		return fmt.Errorf("UpsertMemberships: %w", err)
	}
	return nil
}
