// Package decision implements swipe handling: likes, passes, unlikes,
// mutual-match creation and the liker listings built on top of them.
package decision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/app"
	"github.com/emberly-app/emberly/internal/db"
	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/events"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/repository"
)

// Service contains the business logic on top of the repositories and
// cache layers.
type Service struct {
	appCtx   *app.AppContext
	likes    *repository.LikeRepository
	passes   *repository.PassRepository
	matches  *repository.MatchRepository
	rankings *repository.RankingRepository
	profiles *repository.ProfileRepository
}

// NewService creates the decision service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		likes:    repository.NewLikeRepository(appCtx.DB),
		passes:   repository.NewPassRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		rankings: repository.NewRankingRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// LikeResult reports the outcome of a like.
type LikeResult struct {
	Mutual  bool   `json:"mutual"`
	MatchID string `json:"match_id,omitempty"`
}

// Liker is one entry of a "who liked me" listing.
type Liker struct {
	SenderID  uint64 `json:"sender_id"`
	Timestamp uint64 `json:"unix_timestamp"`
}

// PutLike records sender liking receiver.
//
// Behavior:
//   - Rejects self-likes and unknown receivers.
//   - Duplicate submission is rejected via the unique constraint, not
//     silently duplicated.
//   - Bumps the receiver's Redis like count and drops the receiver
//     from the sender's live ranking snapshot so a decided candidate
//     cannot resurface from cache.
//   - If the receiver already liked the sender, creates the match
//     exactly once and publishes a MatchCreated event to both sides.
func (s *Service) PutLike(ctx context.Context, senderID, receiverID uint64) (*LikeResult, error) {
	if err := s.checkPair(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	created, err := s.likes.Create(ctx, senderID, receiverID)
	if err != nil {
		return nil, svcErr.Storagef("create like", err)
	}
	if !created {
		return nil, fmt.Errorf("like %d -> %d: %w", senderID, receiverID, svcErr.ErrDuplicateDecision)
	}
	s.appCtx.Metrics.Decision(metrics.DecisionLike)

	// cache upkeep is best-effort; the DB stays the source of truth
	key := s.appCtx.RedisCache.KeyForLikeCount(receiverID)
	_, _ = s.appCtx.RedisCache.Incr(ctx, key)
	_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()

	if err := s.rankings.RemoveTarget(ctx, senderID, receiverID); err != nil {
		s.appCtx.Logger.Warn("failed to drop decided candidate from snapshot", "user_id", senderID, "target_id", receiverID, "err", err)
	}

	mutual, err := s.likes.HasLiked(ctx, receiverID, senderID)
	if err != nil {
		return nil, svcErr.Storagef("check mutual like", err)
	}
	if !mutual {
		return &LikeResult{}, nil
	}

	match, matchCreated, err := s.matches.Create(ctx, senderID, receiverID)
	if err != nil {
		return nil, svcErr.Storagef("create match", err)
	}
	if matchCreated {
		s.appCtx.Metrics.MatchCreated()
		s.appCtx.Logger.Info("match created", "match_id", match.ID, "user_a", match.UserAID, "user_b", match.UserBID)
		for _, pair := range [][2]uint64{{senderID, receiverID}, {receiverID, senderID}} {
			s.appCtx.Bus.Publish(events.MatchCreated{
				MatchID:   match.ID,
				UserID:    pair[0],
				PartnerID: pair[1],
				MatchedAt: match.MatchedAt,
			})
		}
	}
	return &LikeResult{Mutual: true, MatchID: match.ID}, nil
}

// PutPass records sender passing on receiver. Same idempotency rules
// as PutLike, no mutual logic.
func (s *Service) PutPass(ctx context.Context, senderID, receiverID uint64) error {
	if err := s.checkPair(ctx, senderID, receiverID); err != nil {
		return err
	}

	created, err := s.passes.Create(ctx, senderID, receiverID)
	if err != nil {
		return svcErr.Storagef("create pass", err)
	}
	if !created {
		return fmt.Errorf("pass %d -> %d: %w", senderID, receiverID, svcErr.ErrDuplicateDecision)
	}
	s.appCtx.Metrics.Decision(metrics.DecisionPass)

	if err := s.rankings.RemoveTarget(ctx, senderID, receiverID); err != nil {
		s.appCtx.Logger.Warn("failed to drop decided candidate from snapshot", "user_id", senderID, "target_id", receiverID, "err", err)
	}
	return nil
}

// Unlike deletes a like. The only mutation Decisions allow.
func (s *Service) Unlike(ctx context.Context, senderID, receiverID uint64) error {
	if senderID == receiverID {
		return svcErr.InvalidArgumentf("cannot decide on yourself")
	}
	if err := s.likes.Delete(ctx, senderID, receiverID); err != nil {
		return svcErr.Storagef("delete like", err)
	}
	s.appCtx.Metrics.Decision(metrics.DecisionUnlike)

	key := s.appCtx.RedisCache.KeyForLikeCount(receiverID)
	_, _ = s.appCtx.RedisCache.Decr(ctx, key)
	_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
	return nil
}

// ListLikedYou returns users who liked the given receiver, excluding
// those the receiver passed, with cursor pagination.
func (s *Service) ListLikedYou(ctx context.Context, receiverID uint64, paginationToken *string, limit int) ([]Liker, *string, error) {
	likes, next, err := s.likes.GetLikers(ctx, receiverID, paginationToken, limit)
	if err != nil {
		return nil, nil, svcErr.Storagef("list likers", err)
	}
	likers := make([]Liker, 0, len(likes))
	for _, l := range likes {
		likers = append(likers, Liker{
			SenderID:  l.SenderID,
			Timestamp: uint64(l.CreatedAt.UnixMilli()),
		})
	}
	return likers, next, nil
}

// CountLikedYou returns how many users liked the receiver.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID).
//  2. On cache miss, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, receiverID uint64) (int64, error) {
	if count, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, receiverID); err == nil && ok {
		return count, nil
	}

	count, err := s.likes.CountLikers(ctx, receiverID)
	if err != nil {
		return 0, svcErr.Storagef("count likers", err)
	}
	_ = s.appCtx.RedisCache.Set(ctx, s.appCtx.RedisCache.KeyForLikeCount(receiverID), strconv.FormatInt(count, 10), time.Hour)
	return count, nil
}

// MatchView is a match joined with the partner's display payload.
type MatchView struct {
	MatchID   string    `json:"match_id"`
	PartnerID uint64    `json:"partner_id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Location  string    `json:"location"`
	MatchedAt time.Time `json:"matched_at"`
}

// ListMatches returns the user's matches, newest first, with partner
// display fields attached.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchView, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Storagef("list matches", err)
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.UserAID == userID {
			ids = append(ids, m.UserBID)
		} else {
			ids = append(ids, m.UserAID)
		}
	}
	partners, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Storagef("load match partners", err)
	}
	byID := make(map[uint64]db.Profile, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		partnerID := m.UserAID
		if partnerID == userID {
			partnerID = m.UserBID
		}
		p, ok := byID[partnerID]
		if !ok {
			continue
		}
		views = append(views, MatchView{
			MatchID:   m.ID,
			PartnerID: partnerID,
			Name:      p.Name,
			Age:       p.Age,
			Location:  p.Location,
			MatchedAt: m.MatchedAt,
		})
	}
	return views, nil
}

// checkPair validates a decision's endpoints: distinct users, known
// receiver.
func (s *Service) checkPair(ctx context.Context, senderID, receiverID uint64) error {
	if senderID == receiverID {
		return svcErr.InvalidArgumentf("cannot decide on yourself")
	}
	if _, err := s.profiles.Get(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.NotFoundf("user %d", receiverID)
		}
		return svcErr.Storagef("load receiver profile", err)
	}
	return nil
}
