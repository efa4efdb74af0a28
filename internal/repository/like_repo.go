package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberly-app/emberly/internal/db"
	"github.com/emberly-app/emberly/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts a like from sender to receiver.
//
// Behavior:
//   - The composite PK (sender_id, receiver_id) makes duplicate
//     submission a no-op; created reports whether a row was inserted.
//
// Example:
//
//	repo.Create(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Create(ctx context.Context, senderID, receiverID uint64) (created bool, err error) {
	like := db.Like{SenderID: senderID, ReceiverID: receiverID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a like ("unlike"). Deleting a non-existent like is not
// an error.
func (r *LikeRepository) Delete(ctx context.Context, senderID, receiverID uint64) error {
	return r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Delete(&db.Like{}).Error
}

// HasLiked checks whether sender has liked receiver. Used for mutual
// like detection.
func (r *LikeRepository) HasLiked(ctx context.Context, senderID, receiverID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Count(&count).Error
	return count > 0, err
}

// ReceiverIDsBySender returns the IDs of every user the sender liked.
// Feeds the exclusion set.
func (r *LikeRepository) ReceiverIDsBySender(ctx context.Context, senderID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("sender_id = ?", senderID).
		Pluck("receiver_id", &ids).Error
	return ids, err
}

// SenderIDsByReceiver returns the IDs of every user who liked the
// receiver. Feeds the hasLikedMe priority set, not the exclusion set.
func (r *LikeRepository) SenderIDsByReceiver(ctx context.Context, receiverID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("receiver_id = ?", receiverID).
		Pluck("sender_id", &ids).Error
	return ids, err
}

// GetLikers returns users who liked the given receiver.
//
// Behavior:
//   - Excludes senders the receiver explicitly passed.
//   - Ordered by created_at DESC, sender_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, 42, nil, 20) // first 20 people who liked user 42
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	receiverID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.receiver_id = ?", receiverID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.sender_id = ?
				  AND p.receiver_id = l.sender_id
			)`, receiverID).
		Order("l.created_at DESC, l.sender_id DESC").
		Limit(limit + 1)

	if cursor.SenderID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.sender_id < ?))",
			ts, ts, cursor.SenderID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			SenderID:    last.SenderID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many users liked the given receiver,
// excluding senders the receiver passed. Used with the Redis counter
// (DB is fallback).
func (r *LikeRepository) CountLikers(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.receiver_id = ?", receiverID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.sender_id = ?
				  AND p.receiver_id = l.sender_id
			)`, receiverID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
