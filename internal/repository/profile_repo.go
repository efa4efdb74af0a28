package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/db"
)

// ProfileRepository provides data access methods for the Profile model.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get fetches one profile by ID. Returns gorm.ErrRecordNotFound for
// unknown IDs; callers map it to the domain NotFound.
func (r *ProfileRepository) Get(ctx context.Context, id uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListRecent returns up to limit active profiles excluding the given
// user, most recently active first. The recency order is the stable
// pre-exclusion tiebreak for candidate selection.
func (r *ProfileRepository) ListRecent(ctx context.Context, excludeID uint64, limit int) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("id <> ? AND active = ?", excludeID, true).
		Order("last_active_at DESC, id ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// GetByIDs fetches profiles for the given IDs. Order is unspecified.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []uint64) ([]db.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&profiles).Error
	return profiles, err
}

// Update applies a partial update to a profile.
//
// Behavior:
//   - values are column → value pairs; zero values are written as-is
//     (unlike gorm struct updates).
//   - Returns gorm.ErrRecordNotFound if the profile does not exist.
func (r *ProfileRepository) Update(ctx context.Context, id uint64, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLastActive bumps the recency timestamp used by candidate
// selection.
func (r *ProfileRepository) TouchLastActive(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now().UTC()).Error
}
