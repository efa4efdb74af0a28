package ranking

import (
	"fmt"
	"strings"

	"github.com/emberly-app/emberly/internal/db"
)

// Scoring rubric weights, in percent. These are design constants agreed
// with the prompt wording below, not runtime configuration.
const (
	weightLocation    = 30
	weightInterests   = 25
	weightAge         = 15
	weightLifestyle   = 15
	weightEducation   = 10
	weightPersonality = 5
)

// BuildPrompt renders the natural-language scoring request for one
// batch: requester attributes, candidate attributes and the fixed
// rubric, asking for an embedded JSON array keyed by candidate ID.
func BuildPrompt(requester db.Profile, batch []Candidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the dating compatibility of User A against %d candidates.\n\n", len(batch))
	b.WriteString("User A (the seeker):\n")
	writeAttributes(&b, requester)

	fmt.Fprintf(&b, "\n%d candidates:\n", len(batch))
	for i, c := range batch {
		fmt.Fprintf(&b, "\nCandidate %d:\n", i+1)
		writeAttributes(&b, c.Profile)
	}

	fmt.Fprintf(&b, `
Scoring criteria (by priority):
1. Location proximity (%d%%): same area scores highest
2. Interest overlap (%d%%): shared interests / total interests
3. Age compatibility (%d%%): reasonable age gap
4. Lifestyle match (%d%%)
5. Education level (%d%%): comparable education
6. Personality traits (%d%%): complementary or similar traits

Return a JSON array, one entry per candidate, using the numeric IDs above:
[
  {"candidate_id": 12, "score": 85, "match_percentage": 88, "reasons": ["same city", "60%% interest overlap"]},
  {"candidate_id": 7, "score": 72, "match_percentage": 70, "reasons": ["good lifestyle match"]}
]

Scores and match percentages are integers from 0 to 100.
`, weightLocation, weightInterests, weightAge, weightLifestyle, weightEducation, weightPersonality)

	return b.String()
}

func writeAttributes(b *strings.Builder, p db.Profile) {
	fmt.Fprintf(b, "- ID: %d\n", p.ID)
	fmt.Fprintf(b, "- Age: %s\n", orUnknown(fmt.Sprintf("%d", p.Age), p.Age > 0))
	fmt.Fprintf(b, "- Gender: %s\n", orUnknown(p.Gender, p.Gender != ""))
	fmt.Fprintf(b, "- Location: %s\n", orUnknown(p.Location, p.Location != ""))
	fmt.Fprintf(b, "- Interests: %s\n", orUnknown(strings.Join(p.Interests, ", "), len(p.Interests) > 0))
	fmt.Fprintf(b, "- Personality: %s\n", orUnknown(strings.Join(p.PersonalityTraits, ", "), len(p.PersonalityTraits) > 0))
	fmt.Fprintf(b, "- Education: %s\n", orUnknown(p.Education, p.Education != ""))
	fmt.Fprintf(b, "- Occupation: %s\n", orUnknown(p.JobTitle, p.JobTitle != ""))
	fmt.Fprintf(b, "- Lifestyle: %s\n", orUnknown(p.Lifestyle, p.Lifestyle != ""))
}

func orUnknown(s string, ok bool) string {
	if !ok {
		return "unknown"
	}
	return s
}
