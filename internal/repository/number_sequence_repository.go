package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository keeps one counter per invoice prefix. Prefixes
// carry the month, so numbering restarts every month.
type NumberSequenceRepository struct {
	db *gorm.DB
}

func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// Next bumps the counter for prefix and returns the new value. The first call
// for a prefix returns 1.
func (r *NumberSequenceRepository) Next(ctx context.Context, prefix string) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seq := domain.NumberSequence{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(domain.NumberSequence{Prefix: prefix}).
			Attrs(domain.NumberSequence{CreatedAt: now, UpdatedAt: now}).
			FirstOrCreate(&seq).Error
		if err != nil {
			return fmt.Errorf("load sequence %s: %w", prefix, err)
		}

		err = tx.Model(&domain.NumberSequence{}).
			Where("id = ?", seq.ID).
			UpdateColumns(map[string]interface{}{
				"last_sequence": gorm.Expr("last_sequence + 1"),
				"updated_at":    now,
			}).Error
		if err != nil {
			return fmt.Errorf("bump sequence %s: %w", prefix, err)
		}
		next = seq.LastSequence + 1
		return nil
	})
	return next, err
}

// Peek returns the last value handed out for prefix without consuming one
func (r *NumberSequenceRepository) Peek(ctx context.Context, prefix string) (int, error) {
	var values []int
	err := r.db.WithContext(ctx).Model(&domain.NumberSequence{}).
		Where("prefix = ?", prefix).
		Pluck("last_sequence", &values).Error
	if err != nil || len(values) == 0 {
		return 0, err
	}
	return values[0], nil
}
