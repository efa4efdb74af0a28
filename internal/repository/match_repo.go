package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberly-app/emberly/internal/db"
)

// MatchRepository provides data access methods for the Match model.
// Pairs are stored normalized (smaller ID first) so one row covers both
// orderings.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// NormalizePair orders a match pair so (A,B) and (B,A) map to the same
// row.
func NormalizePair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Create inserts the match for the given pair exactly once.
//
// Behavior:
//   - The pair is normalized before insert; the unique index on
//     (user_a_id, user_b_id) makes concurrent creation race-safe.
//   - created reports whether this call inserted the row; either way
//     the stored match is returned.
//
// Example:
//
//	repo.Create(ctx, 2, 1) // same row as Create(ctx, 1, 2)
func (r *MatchRepository) Create(ctx context.Context, userA, userB uint64) (db.Match, bool, error) {
	a, b := NormalizePair(userA, userB)
	match := db.Match{ID: uuid.NewString(), UserAID: a, UserBID: b}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match)
	if res.Error != nil {
		return db.Match{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return match, true, nil
	}

	// lost the race or already matched; fetch the existing row
	var existing db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&existing).Error
	if err != nil {
		return db.Match{}, false, err
	}
	return existing, false, nil
}

// Get returns the match for a pair, if any, in either ordering.
func (r *MatchRepository) Get(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	a, b := NormalizePair(userA, userB)
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns every match the user participates in, newest
// first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("matched_at DESC").
		Find(&matches).Error
	return matches, err
}

// PartnerIDs returns the IDs of every user matched with the given
// user. Feeds the exclusion set.
func (r *MatchRepository) PartnerIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	matches, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.UserAID == userID {
			ids = append(ids, m.UserBID)
		} else {
			ids = append(ids, m.UserAID)
		}
	}
	return ids, nil
}
