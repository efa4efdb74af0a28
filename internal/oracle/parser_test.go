package oracle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberly-app/emberly/internal/oracle"
)

func TestExtractScoresFromProse(t *testing.T) {
	text := `Here is my compatibility analysis:

[
  {"candidate_id": 12, "score": 85, "match_percentage": 88, "reasons": ["same city"]},
  {"candidate_id": 7, "score": 72, "match_percentage": 70, "reasons": ["shared interests", "similar age"]}
]

Let me know if you need more detail.`

	scores, err := oracle.ExtractScores(text)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, uint64(12), scores[0].CandidateID)
	assert.Equal(t, 85, scores[0].Score)
	assert.Equal(t, 88, scores[0].MatchPercentage)
	assert.Equal(t, []string{"same city"}, scores[0].Reasons)

	assert.Equal(t, uint64(7), scores[1].CandidateID)
	assert.Len(t, scores[1].Reasons, 2)
}

func TestExtractScoresClampsRange(t *testing.T) {
	text := `[{"candidate_id": 1, "score": 140, "match_percentage": -5}]`

	scores, err := oracle.ExtractScores(text)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 100, scores[0].Score)
	assert.Equal(t, 0, scores[0].MatchPercentage)
}

func TestExtractScoresSingularReason(t *testing.T) {
	text := `[{"candidate_id": 3, "score": 50, "reason": "close enough"}]`

	scores, err := oracle.ExtractScores(text)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, []string{"close enough"}, scores[0].Reasons)
	// missing match_percentage defaults to the score
	assert.Equal(t, 50, scores[0].MatchPercentage)
}

func TestExtractScoresDropsBrokenEntries(t *testing.T) {
	text := `[
  {"candidate_id": 0, "score": 50},
  {"candidate_id": 4},
  {"candidate_id": 5, "score": 61}
]`

	scores, err := oracle.ExtractScores(text)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, uint64(5), scores[0].CandidateID)
}

func TestExtractScoresNoArray(t *testing.T) {
	for _, text := range []string{
		"",
		"I cannot score these candidates.",
		"][",
		"[this is not json]",
		"[]",
	} {
		_, err := oracle.ExtractScores(text)
		assert.ErrorIs(t, err, oracle.ErrNoScores, "text: %q", text)
	}
}

func TestKeyringRotation(t *testing.T) {
	ring := oracle.NewKeyring([]string{"a", "b", "c"})
	assert.Equal(t, 3, ring.Len())

	var got []string
	for i := 0; i < 6; i++ {
		key, err := ring.Next()
		require.NoError(t, err)
		got = append(got, key)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestKeyringEmpty(t *testing.T) {
	ring := oracle.NewKeyring(nil)
	_, err := ring.Next()
	assert.ErrorIs(t, err, oracle.ErrNoCredentials)
}
