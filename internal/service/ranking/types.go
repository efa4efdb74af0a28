// Package ranking implements the candidate ranking engine: exclusion
// set maintenance, bounded candidate selection, batched oracle scoring
// and the cached, time-boxed recommendation list built from them.
package ranking

import (
	"github.com/emberly-app/emberly/internal/db"
)

// Candidate is a selectable profile annotated with the priority flag.
type Candidate struct {
	Profile    db.Profile
	HasLikedMe bool
}

// CompatibilityResult is the scorer's output for one candidate,
// ephemeral within a single ranking run.
type CompatibilityResult struct {
	CandidateID     uint64
	Score           int
	MatchPercentage int
	Reasons         []string
}

// RankedUser is the unit returned to callers: candidate payload plus
// compatibility estimate plus priority flag.
type RankedUser struct {
	ID              uint64   `json:"id"`
	Name            string   `json:"name"`
	Gender          string   `json:"gender"`
	Age             int      `json:"age"`
	Bio             string   `json:"bio"`
	JobTitle        string   `json:"job_title"`
	Education       string   `json:"education"`
	Location        string   `json:"location"`
	Interests       []string `json:"interests"`
	Lifestyle       string   `json:"lifestyle"`
	Score           int      `json:"score"`
	MatchPercentage int      `json:"match_percentage"`
	Reasons         []string `json:"reasons"`
	HasLikedMe      bool     `json:"has_liked_me"`
}

func newRankedUser(p db.Profile, res CompatibilityResult, hasLikedMe bool) RankedUser {
	return RankedUser{
		ID:              p.ID,
		Name:            p.Name,
		Gender:          p.Gender,
		Age:             p.Age,
		Bio:             p.Bio,
		JobTitle:        p.JobTitle,
		Education:       p.Education,
		Location:        p.Location,
		Interests:       p.Interests,
		Lifestyle:       p.Lifestyle,
		Score:           res.Score,
		MatchPercentage: res.MatchPercentage,
		Reasons:         res.Reasons,
		HasLikedMe:      hasLikedMe,
	}
}
