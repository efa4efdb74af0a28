package ranking

import (
	"context"

	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/repository"
)

// Selector picks a bounded pool of fresh, unseen candidates for a user.
type Selector struct {
	profiles   *repository.ProfileRepository
	exclusions *ExclusionBuilder
	// overfetchFactor compensates for post-filter shrinkage without a
	// second round-trip in the common case.
	overfetchFactor int
}

// NewSelector creates a selector. overfetchFactor values below 1 are
// raised to 1.
func NewSelector(profiles *repository.ProfileRepository, exclusions *ExclusionBuilder, overfetchFactor int) *Selector {
	if overfetchFactor < 1 {
		overfetchFactor = 1
	}
	return &Selector{profiles: profiles, exclusions: exclusions, overfetchFactor: overfetchFactor}
}

// Select fetches up to poolSize × overfetchFactor most-recently-active
// profiles excluding the requester, subtracts the exclusion set, marks
// hasLikedMe and truncates to poolSize.
//
// An empty result is a valid terminal state, not an error, and the
// pool is deliberately not widened when exclusions empty it; callers
// needing guaranteed results retry with a larger poolSize.
func (s *Selector) Select(ctx context.Context, userID uint64, poolSize int) ([]Candidate, error) {
	sets, err := s.exclusions.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profiles.ListRecent(ctx, userID, poolSize*s.overfetchFactor)
	if err != nil {
		return nil, svcErr.Storagef("list candidate profiles", err)
	}

	candidates := make([]Candidate, 0, poolSize)
	for _, p := range profiles {
		if _, excluded := sets.Excluded[p.ID]; excluded {
			continue
		}
		_, likedMe := sets.LikedMe[p.ID]
		candidates = append(candidates, Candidate{Profile: p, HasLikedMe: likedMe})
		if len(candidates) == poolSize {
			break
		}
	}
	return candidates, nil
}
