package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/app"
	"github.com/emberly-app/emberly/internal/db"
	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/repository"
)

// Service composes exclusion building, candidate selection, oracle
// scoring and the snapshot cache into the single operation "get my
// ranked candidates".
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	rankings *repository.RankingRepository
	selector *Selector
	scorer   *Scorer
	validate *validator.Validate

	// group guarantees at most one in-flight recompute per user.
	// Concurrent recomputes would double the oracle cost and race the
	// cache swap.
	group singleflight.Group

	ttl      time.Duration
	poolSize int
}

// scoringInput is the slice of a profile the oracle needs; ranking a
// user missing these wastes oracle calls on junk prompts.
type scoringInput struct {
	Age       int      `validate:"gte=18"`
	Gender    string   `validate:"required"`
	Location  string   `validate:"required"`
	Interests []string `validate:"min=1"`
}

// NewService creates the ranking service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	profiles := repository.NewProfileRepository(appCtx.DB)
	likes := repository.NewLikeRepository(appCtx.DB)
	passes := repository.NewPassRepository(appCtx.DB)
	matches := repository.NewMatchRepository(appCtx.DB)

	cfg := appCtx.Config
	builder := NewExclusionBuilder(likes, passes, matches)

	return &Service{
		appCtx:   appCtx,
		profiles: profiles,
		rankings: repository.NewRankingRepository(appCtx.DB),
		selector: NewSelector(profiles, builder, cfg.Ranking.OverfetchFactor),
		scorer:   NewScorer(appCtx.Oracle, cfg.Ranking.BatchSize, cfg.Ranking.Deadline, appCtx.Metrics, appCtx.Logger),
		validate: validator.New(),
		ttl:      cfg.Ranking.TTL,
		poolSize: cfg.Ranking.PoolSize,
	}
}

// GetRankedUsers returns the user's ordered recommendation list,
// serving a live snapshot when one exists and recomputing otherwise.
//
// Behavior:
//   - Cache hit: snapshot rows are hydrated with profile payloads and
//     returned without touching the oracle.
//   - Cache miss: the recompute runs under singleflight and detached
//     from the request's cancellation, so an abandoned request still
//     populates the cache for the next one.
//   - An empty candidate pool yields an empty list, not an error.
func (s *Service) GetRankedUsers(ctx context.Context, userID uint64) ([]RankedUser, error) {
	cached, err := s.getCached(ctx, userID)
	if err != nil {
		s.appCtx.Metrics.RankingRequest(metrics.StatusFailure)
		return nil, err
	}
	if cached != nil {
		s.appCtx.Metrics.CacheLookup(metrics.CacheHit)
		s.appCtx.Metrics.RankingRequest(metrics.StatusSuccess)
		return cached, nil
	}
	s.appCtx.Metrics.CacheLookup(metrics.CacheMiss)

	v, err, _ := s.group.Do(strconv.FormatUint(userID, 10), func() (interface{}, error) {
		return s.recompute(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		s.appCtx.Metrics.RankingRequest(metrics.StatusFailure)
		return nil, err
	}
	s.appCtx.Metrics.RankingRequest(metrics.StatusSuccess)
	return v.([]RankedUser), nil
}

// Invalidate drops the user's snapshot so the next request recomputes.
func (s *Service) Invalidate(ctx context.Context, userID uint64) error {
	if err := s.rankings.Invalidate(ctx, userID); err != nil {
		return svcErr.Storagef("invalidate ranking snapshot", err)
	}
	return nil
}

// getCached loads a live snapshot, or nil on miss.
func (s *Service) getCached(ctx context.Context, userID uint64) ([]RankedUser, error) {
	rows, err := s.rankings.GetFresh(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, svcErr.Storagef("read ranking snapshot", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TargetUserID)
	}
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Storagef("hydrate ranking snapshot", err)
	}
	byID := make(map[uint64]db.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	ranked := make([]RankedUser, 0, len(rows))
	for _, row := range rows {
		p, ok := byID[row.TargetUserID]
		if !ok {
			// profile deleted since the snapshot was computed
			continue
		}
		ranked = append(ranked, newRankedUser(p, CompatibilityResult{
			CandidateID:     row.TargetUserID,
			Score:           row.Score,
			MatchPercentage: row.MatchPercentage,
			Reasons:         row.Reasons,
		}, row.HasLikedMe))
	}
	return ranked, nil
}

// recompute runs the full pipeline and stores the resulting snapshot.
func (s *Service) recompute(ctx context.Context, userID uint64) ([]RankedUser, error) {
	started := time.Now()

	requester, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFoundf("user %d", userID)
		}
		return nil, svcErr.Storagef("load requester profile", err)
	}

	if err := s.checkComplete(requester); err != nil {
		return nil, err
	}

	candidates, err := s.selector.Select(ctx, userID, s.poolSize)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// valid terminal state; nothing worth caching
		return []RankedUser{}, nil
	}

	results := s.scorer.Score(ctx, *requester, candidates)

	byID := make(map[uint64]CompatibilityResult, len(results))
	for _, r := range results {
		byID[r.CandidateID] = r
	}

	ranked := make([]RankedUser, 0, len(candidates))
	for _, c := range candidates {
		res, ok := byID[c.Profile.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, newRankedUser(c.Profile, res, c.HasLikedMe))
	}

	// priority first, then score, then stable ID tiebreak
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HasLikedMe != b.HasLikedMe {
			return a.HasLikedMe
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})

	expiresAt := time.Now().UTC().Add(s.ttl)
	rows := make([]db.Ranking, 0, len(ranked))
	for i, ru := range ranked {
		rows = append(rows, db.Ranking{
			UserID:          userID,
			TargetUserID:    ru.ID,
			Score:           ru.Score,
			MatchPercentage: ru.MatchPercentage,
			Reasons:         ru.Reasons,
			HasLikedMe:      ru.HasLikedMe,
			Position:        i + 1,
			ExpiresAt:       expiresAt,
		})
	}
	if err := s.rankings.Replace(ctx, userID, rows); err != nil {
		return nil, svcErr.Storagef("store ranking snapshot", err)
	}

	elapsed := time.Since(started)
	s.appCtx.Metrics.RankingComputed(elapsed.Seconds())
	s.appCtx.Logger.Info("ranking snapshot computed",
		"user_id", userID,
		"candidates", len(candidates),
		"ranked", len(ranked),
		"took", elapsed,
	)
	return ranked, nil
}

// checkComplete gates recomputation on a verified, scoreable profile.
func (s *Service) checkComplete(p *db.Profile) error {
	if !p.Verified {
		return fmt.Errorf("user %d not verified: %w", p.ID, svcErr.ErrProfileIncomplete)
	}
	in := scoringInput{
		Age:       p.Age,
		Gender:    p.Gender,
		Location:  p.Location,
		Interests: p.Interests,
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("user %d profile not scoreable: %w", p.ID, svcErr.ErrProfileIncomplete)
	}
	return nil
}
