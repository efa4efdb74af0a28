package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/db"
)

// RankingRepository provides data access methods for ranking snapshots.
type RankingRepository struct {
	db *gorm.DB
}

// NewRankingRepository creates a new repository bound to the given DB connection.
func NewRankingRepository(database *gorm.DB) *RankingRepository {
	return &RankingRepository{db: database}
}

// GetFresh returns the live snapshot rows for a user ordered by
// position. An expired or absent snapshot yields an empty slice; the
// caller treats that as a cache miss.
func (r *RankingRepository) GetFresh(ctx context.Context, userID uint64, now time.Time) ([]db.Ranking, error) {
	var rows []db.Ranking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

// Replace atomically swaps the user's snapshot for the given rows.
//
// Behavior:
//   - Runs delete-then-insert in one transaction so concurrent readers
//     never observe an interleaving of two partial snapshots, and a
//     concurrent Replace resolves to one complete set.
//   - rows must already carry contiguous 1-based positions.
func (r *RankingRepository) Replace(ctx context.Context, userID uint64, rows []db.Ranking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&db.Ranking{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// Invalidate deletes the user's snapshot wholesale, forcing the next
// request to recompute. Called on profile edits.
func (r *RankingRepository) Invalidate(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Ranking{}).Error
}

// RemoveTarget drops one candidate from the user's live snapshot, so a
// just-decided user cannot resurface from cache before the next
// recompute.
func (r *RankingRepository) RemoveTarget(ctx context.Context, userID, targetUserID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", userID, targetUserID).
		Delete(&db.Ranking{}).Error
}
