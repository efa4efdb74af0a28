package ranking

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/emberly-app/emberly/internal/db"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/oracle"
)

// fallbackReason marks a score the oracle did not produce.
const fallbackReason = "Provisional score; compatibility analysis unavailable"

// Generator is the oracle surface the scorer needs. Satisfied by
// *oracle.Client and by test doubles.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Scorer partitions the candidate pool into small batches and scores
// them concurrently against the oracle. Batches are small because the
// oracle is rate-limited per credential; concurrent dispatch across
// rotated credentials keeps throughput up without serializing on one
// quota.
type Scorer struct {
	gen       Generator
	batchSize int
	// deadline bounds the whole scoring pass; candidates unscored when
	// it expires are fallback-scored rather than failing the request.
	deadline time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewScorer creates a scorer. batchSize values below 1 are raised to 1.
func NewScorer(gen Generator, batchSize int, deadline time.Duration, m *metrics.Metrics, logger *slog.Logger) *Scorer {
	if batchSize < 1 {
		batchSize = 1
	}
	if deadline <= 0 {
		deadline = time.Minute
	}
	return &Scorer{gen: gen, batchSize: batchSize, deadline: deadline, metrics: m, logger: logger}
}

// Score produces exactly one CompatibilityResult per candidate.
//
// Batches are dispatched fire-and-collect: all at once, each with the
// oracle client's own per-call timeout, so a hung batch cannot block
// its siblings. A batch whose call fails or whose response does not
// parse is discarded; its candidates, and any candidate the oracle
// skipped, receive a uniformly-random fallback score. Total oracle
// failure therefore degrades to a fully random ordering instead of
// blocking the pipeline.
func (s *Scorer) Score(ctx context.Context, requester db.Profile, candidates []Candidate) []CompatibilityResult {
	if len(candidates) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var (
		mu     sync.Mutex
		scored = make(map[uint64]oracle.Score, len(candidates))
		wg     sync.WaitGroup
	)

	for start := 0; start < len(candidates); start += s.batchSize {
		end := min(start+s.batchSize, len(candidates))
		batch := candidates[start:end]

		wg.Add(1)
		go func() {
			defer wg.Done()

			text, err := s.gen.Generate(ctx, BuildPrompt(requester, batch))
			if err != nil {
				s.metrics.OracleBatch(metrics.StatusFailure)
				s.logger.Warn("oracle batch failed", "batch_size", len(batch), "err", err)
				return
			}

			scores, err := oracle.ExtractScores(text)
			if err != nil {
				s.metrics.OracleBatch(metrics.StatusFailure)
				s.logger.Warn("oracle batch unparseable", "batch_size", len(batch), "err", err)
				return
			}

			members := make(map[uint64]struct{}, len(batch))
			for _, c := range batch {
				members[c.Profile.ID] = struct{}{}
			}

			mu.Lock()
			for _, sc := range scores {
				// drop IDs the oracle invented
				if _, ok := members[sc.CandidateID]; ok {
					scored[sc.CandidateID] = sc
				}
			}
			mu.Unlock()
			s.metrics.OracleBatch(metrics.StatusSuccess)
		}()
	}
	wg.Wait()

	results := make([]CompatibilityResult, 0, len(candidates))
	for _, c := range candidates {
		if sc, ok := scored[c.Profile.ID]; ok {
			results = append(results, CompatibilityResult{
				CandidateID:     sc.CandidateID,
				Score:           sc.Score,
				MatchPercentage: sc.MatchPercentage,
				Reasons:         sc.Reasons,
			})
			continue
		}
		s.metrics.OracleBatch(metrics.StatusFallback)
		n := rand.IntN(101)
		results = append(results, CompatibilityResult{
			CandidateID:     c.Profile.ID,
			Score:           n,
			MatchPercentage: n,
			Reasons:         []string{fallbackReason},
		})
	}
	return results
}
