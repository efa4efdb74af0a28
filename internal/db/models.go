package db

import (
	"time"
)

// Profile holds a user's account and public matching attributes. The
// free-text attribute fields feed the compatibility oracle prompt; the
// ranking core otherwise treats them as read-only display payload.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`

	Name              string   `gorm:"size:64"`
	Gender            string   `gorm:"size:16;not null"`
	Age               int      `gorm:"not null"`
	Bio               string   `gorm:"size:500"`
	JobTitle          string   `gorm:"size:128"`
	Education         string   `gorm:"size:128"`
	Location          string   `gorm:"size:128"`
	Interests         []string `gorm:"serializer:json;type:text"`
	PersonalityTraits []string `gorm:"serializer:json;type:text"`
	Lifestyle         string   `gorm:"size:128"`
	HeightCM          int
	WeightKG          int

	// Verified gates access to the ranking engine; set after a
	// complete profile update passes validation.
	Verified bool `gorm:"default:false"`
	Active   bool `gorm:"default:true"`

	LastActiveAt time.Time `gorm:"index:idx_profiles_recency,sort:desc"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Like records sender liking receiver.
//
// Composite PK: (SenderID, ReceiverID) — a single row per pair is the
// unique-constraint guard against duplicate submission.
//
// Index idx_likes_receiver_created(receiver_id, created_at DESC,
// sender_id) serves "who liked me" listings with pagination.
type Like struct {
	SenderID   uint64    `gorm:"primaryKey"`
	ReceiverID uint64    `gorm:"primaryKey;index:idx_likes_receiver_created,priority:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_likes_receiver_created,priority:2,sort:desc"`
}

// Pass records sender passing on receiver. Same composite-PK shape as
// Like; rows are never mutated.
type Pass struct {
	SenderID   uint64    `gorm:"primaryKey"`
	ReceiverID uint64    `gorm:"primaryKey;index:idx_passes_receiver"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Match is created exactly once when a mutual like is detected. The
// pair is stored normalized (UserAID < UserBID) so (A,B) and (B,A)
// denote the same row, enforced by the unique index.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserAID   uint64    `gorm:"uniqueIndex:idx_matches_pair,priority:1;index:idx_matches_user_b"`
	UserBID   uint64    `gorm:"uniqueIndex:idx_matches_pair,priority:2"`
	MatchedAt time.Time `gorm:"autoCreateTime"`
}

// Ranking is one row of a user's ranking snapshot. At most one live
// (non-expired) snapshot exists per user; recomputation replaces the
// whole set in a single transaction.
type Ranking struct {
	UserID          uint64   `gorm:"primaryKey;index:idx_rankings_user_expiry,priority:1"`
	TargetUserID    uint64   `gorm:"primaryKey"`
	Score           int      `gorm:"not null"`
	MatchPercentage int      `gorm:"not null"`
	Reasons         []string `gorm:"serializer:json;type:text"`
	HasLikedMe      bool     `gorm:"not null"`
	// Position is 1-based and contiguous, matching the sort order at
	// computation time.
	Position  int       `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index:idx_rankings_user_expiry,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
