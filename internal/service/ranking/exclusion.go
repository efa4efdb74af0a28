package ranking

import (
	"context"

	"golang.org/x/sync/errgroup"

	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/repository"
)

// ExclusionSets holds the IDs that must never surface as candidates
// for a user, and separately the IDs of users who liked them. A user
// who liked you is NOT excluded; they appear with priority.
type ExclusionSets struct {
	Excluded map[uint64]struct{}
	LikedMe  map[uint64]struct{}
}

// ExclusionBuilder derives exclusion sets from the decision and match
// stores. Read-only.
type ExclusionBuilder struct {
	likes   *repository.LikeRepository
	passes  *repository.PassRepository
	matches *repository.MatchRepository
}

// NewExclusionBuilder creates a builder over the given repositories.
func NewExclusionBuilder(likes *repository.LikeRepository, passes *repository.PassRepository, matches *repository.MatchRepository) *ExclusionBuilder {
	return &ExclusionBuilder{likes: likes, passes: passes, matches: matches}
}

// Build unions four independent lookups: users the requester liked,
// users the requester passed, users matched with the requester, and
// users who passed on the requester. The liked-me set rides along on a
// fifth lookup.
//
// All lookups run concurrently; any failure fails the whole build. A
// silently incomplete exclusion set risks resurfacing a decided user,
// so partial results are never returned.
func (b *ExclusionBuilder) Build(ctx context.Context, userID uint64) (ExclusionSets, error) {
	var (
		liked, passed, matched, passedMe, likedMe []uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		liked, err = b.likes.ReceiverIDsBySender(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		passed, err = b.passes.ReceiverIDsBySender(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		matched, err = b.matches.PartnerIDs(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		passedMe, err = b.passes.SenderIDsByReceiver(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		likedMe, err = b.likes.SenderIDsByReceiver(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ExclusionSets{}, svcErr.Storagef("build exclusion set", err)
	}

	sets := ExclusionSets{
		Excluded: make(map[uint64]struct{}, len(liked)+len(passed)+len(matched)+len(passedMe)),
		LikedMe:  make(map[uint64]struct{}, len(likedMe)),
	}
	for _, ids := range [][]uint64{liked, passed, matched, passedMe} {
		for _, id := range ids {
			sets.Excluded[id] = struct{}{}
		}
	}
	for _, id := range likedMe {
		sets.LikedMe[id] = struct{}{}
	}
	return sets, nil
}
