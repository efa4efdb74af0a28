package oracle

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNoScores is returned when a response carries no usable score
// array. The batch is discarded; the error never propagates past the
// scorer.
var ErrNoScores = errors.New("oracle: response contains no score array")

// Score is one parsed compatibility estimate. Score and
// MatchPercentage are both clamped to [0,100]; they are produced
// independently by the oracle and may diverge.
type Score struct {
	CandidateID     uint64
	Score           int
	MatchPercentage int
	Reasons         []string
}

// rawScore tolerates the field variants the oracle is known to emit
// (singular reason, missing match_percentage) while rejecting anything
// structurally broken.
type rawScore struct {
	CandidateID     uint64   `json:"candidate_id"`
	Score           *int     `json:"score"`
	MatchPercentage *int     `json:"match_percentage"`
	Reason          string   `json:"reason"`
	Reasons         []string `json:"reasons"`
}

// ExtractScores locates the JSON array embedded in free-form response
// text and decodes it into typed scores.
//
// Behavior:
//   - The array is the substring from the first '[' to the last ']';
//     surrounding prose is ignored.
//   - Entries without a candidate ID or score are dropped.
//   - Returns ErrNoScores when no array is present or nothing decodes,
//     never a panic: this is the one unreliable-external-data boundary
//     in the system.
func ExtractScores(text string) ([]Score, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, ErrNoScores
	}

	var raw []rawScore
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, ErrNoScores
	}

	scores := make([]Score, 0, len(raw))
	for _, r := range raw {
		if r.CandidateID == 0 || r.Score == nil {
			continue
		}
		s := Score{
			CandidateID: r.CandidateID,
			Score:       clamp(*r.Score),
			Reasons:     r.Reasons,
		}
		if r.MatchPercentage != nil {
			s.MatchPercentage = clamp(*r.MatchPercentage)
		} else {
			s.MatchPercentage = s.Score
		}
		if len(s.Reasons) == 0 && r.Reason != "" {
			s.Reasons = []string{r.Reason}
		}
		scores = append(scores, s)
	}
	if len(scores) == 0 {
		return nil, ErrNoScores
	}
	return scores, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
