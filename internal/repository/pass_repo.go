package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberly-app/emberly/internal/db"
)

// PassRepository provides data access methods for the Pass model.
type PassRepository struct {
	db *gorm.DB
}

// NewPassRepository creates a new repository bound to the given DB connection.
func NewPassRepository(database *gorm.DB) *PassRepository {
	return &PassRepository{db: database}
}

// Create inserts a pass from sender to receiver. Duplicate submission
// is a no-op; created reports whether a row was inserted.
func (r *PassRepository) Create(ctx context.Context, senderID, receiverID uint64) (created bool, err error) {
	pass := db.Pass{SenderID: senderID, ReceiverID: receiverID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pass)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReceiverIDsBySender returns the IDs of every user the sender passed.
// Feeds the exclusion set.
func (r *PassRepository) ReceiverIDsBySender(ctx context.Context, senderID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Pass{}).
		Where("sender_id = ?", senderID).
		Pluck("receiver_id", &ids).Error
	return ids, err
}

// SenderIDsByReceiver returns the IDs of every user who passed on the
// receiver. A user who passed on you never reappears as a candidate.
func (r *PassRepository) SenderIDsByReceiver(ctx context.Context, receiverID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Pass{}).
		Where("receiver_id = ?", receiverID).
		Pluck("sender_id", &ids).Error
	return ids, err
}
