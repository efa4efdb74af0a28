package ranking_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/app"
	"github.com/emberly-app/emberly/internal/cache"
	"github.com/emberly-app/emberly/internal/config"
	"github.com/emberly-app/emberly/internal/db"
	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/events"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/oracle"
	"github.com/emberly-app/emberly/internal/repository"
	"github.com/emberly-app/emberly/internal/service/ranking"
)

//
// Test helpers
//

var promptIDs = regexp.MustCompile(`- ID: (\d+)`)

// scoringOracle imitates the generation endpoint: it reads the prompt,
// extracts the candidate IDs and scores each candidate with 10×ID so
// ordering assertions are deterministic. calls counts oracle requests.
func scoringOracle(t *testing.T, calls *atomic.Int64, delay time.Duration) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotEmpty(t, req.Contents) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := req.Contents[0].Parts[0].Text

		matches := promptIDs.FindAllStringSubmatch(prompt, -1)
		if !assert.NotEmpty(t, matches) {
			http.Error(w, "no ids", http.StatusBadRequest)
			return
		}

		// the first ID block describes the requester, the rest are candidates
		entries := make([]string, 0, len(matches)-1)
		for _, m := range matches[1:] {
			id, _ := strconv.ParseUint(m[1], 10, 64)
			entries = append(entries, fmt.Sprintf(
				`{"candidate_id": %d, "score": %d, "match_percentage": %d, "reasons": ["stub"]}`,
				id, (10*id)%101, (10*id)%101,
			))
		}

		text := "Scores below:\n["
		for i, e := range entries {
			if i > 0 {
				text += ","
			}
			text += e
		}
		text += "]"

		body := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	})
}

// setupService wires an in-memory SQLite DB, a miniredis and the given
// oracle stub into a ranking service. Each test is fully isolated.
func setupService(t *testing.T, oracleHandler http.Handler) (*ranking.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	srv := httptest.NewServer(oracleHandler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Oracle.URL = srv.URL
	cfg.Oracle.APIKeys = []string{"test-key"}
	cfg.Oracle.RPS = 1000
	cfg.Oracle.Timeout = 5 * time.Second
	cfg.Ranking.PoolSize = 10
	cfg.Ranking.BatchSize = 50 // single batch keeps oracle call counting simple
	cfg.Ranking.Deadline = 5 * time.Second
	cfg.Ranking.TTL = time.Hour

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests
	appCtx := app.New(
		cfg,
		dbase,
		cache.NewRedisCache(cfg),
		oracle.NewClient(oracle.Options{
			URL:     cfg.Oracle.URL,
			APIKeys: cfg.Oracle.APIKeys,
			Timeout: cfg.Oracle.Timeout,
			RPS:     cfg.Oracle.RPS,
		}),
		events.NewBus(),
		metrics.New(),
		logger,
	)
	return ranking.NewService(appCtx), dbase
}

// seedProfiles inserts n verified, scoreable profiles with IDs 1..n.
// Lower IDs are more recently active.
func seedProfiles(t *testing.T, gdb *gorm.DB, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 1; i <= n; i++ {
		gender := "male"
		if i%2 == 0 {
			gender = "female"
		}
		p := db.Profile{
			ID:           uint64(i),
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x",
			Name:         fmt.Sprintf("User %d", i),
			Gender:       gender,
			Age:          25,
			Location:     "Hanoi",
			Interests:    []string{"hiking", "coffee"},
			Verified:     true,
			Active:       true,
			LastActiveAt: now.Add(-time.Duration(i) * time.Minute),
		}
		require.NoError(t, gdb.Create(&p).Error)
	}
}

//
// Tests
//

// TestGetRankedUsersExcludesDecided seeds every kind of prior decision
// around user 1 and checks none of those users resurface.
func TestGetRankedUsersExcludesDecided(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 8)

	likes := repository.NewLikeRepository(gdb)
	passes := repository.NewPassRepository(gdb)
	matches := repository.NewMatchRepository(gdb)

	_, err := likes.Create(ctx, 1, 2) // user 1 liked 2
	require.NoError(t, err)
	_, err = passes.Create(ctx, 1, 3) // user 1 passed 3
	require.NoError(t, err)
	_, _, err = matches.Create(ctx, 1, 4) // user 1 matched 4
	require.NoError(t, err)
	_, err = passes.Create(ctx, 5, 1) // user 5 passed on user 1
	require.NoError(t, err)
	_, err = likes.Create(ctx, 6, 1) // user 6 liked user 1, stays in
	require.NoError(t, err)

	ranked, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)

	ids := make(map[uint64]bool, len(ranked))
	for _, ru := range ranked {
		ids[ru.ID] = true
	}
	assert.Equal(t, map[uint64]bool{6: true, 7: true, 8: true}, ids)

	// the user who liked me leads regardless of score
	assert.Equal(t, uint64(6), ranked[0].ID)
	assert.True(t, ranked[0].HasLikedMe)
}

func TestGetRankedUsersOrdering(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 6)

	ranked, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 5)

	// stub scores 10×ID, so descending ID order
	for i := 1; i < len(ranked); i++ {
		assert.Greater(t, ranked[i-1].Score, ranked[i].Score)
	}
	assert.Equal(t, uint64(6), ranked[0].ID)
}

func TestGetRankedUsersServesSnapshot(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 5)

	first, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, int64(1), calls.Load())

	// second call is served from the snapshot, same order
	second, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestGetRankedUsersFallbackOnOracleFailure(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	seedProfiles(t, gdb, 5)

	ranked, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	for _, ru := range ranked {
		assert.GreaterOrEqual(t, ru.Score, 0)
		assert.LessOrEqual(t, ru.Score, 100)
	}
}

func TestGetRankedUsersUnknownUser(t *testing.T) {
	var calls atomic.Int64
	svc, _ := setupService(t, scoringOracle(t, &calls, 0))

	_, err := svc.GetRankedUsers(context.Background(), 12345)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestGetRankedUsersUnverifiedRequester(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 3)

	require.NoError(t, gdb.Model(&db.Profile{}).Where("id = ?", 1).Update("verified", false).Error)

	_, err := svc.GetRankedUsers(ctx, 1)
	assert.ErrorIs(t, err, svcErr.ErrProfileIncomplete)
	assert.Equal(t, int64(0), calls.Load())
}

func TestGetRankedUsersEmptyPool(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 1) // only the requester exists

	ranked, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.Equal(t, int64(0), calls.Load())
}

// TestGetRankedUsersSingleFlight issues concurrent requests against a
// slow oracle and verifies only one recompute runs.
func TestGetRankedUsersSingleFlight(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 200*time.Millisecond))
	seedProfiles(t, gdb, 5)

	var wg sync.WaitGroup
	results := make([][]ranking.RankedUser, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ranked, err := svc.GetRankedUsers(ctx, 1)
			assert.NoError(t, err)
			results[i] = ranked
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Len(t, r, 4)
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 4)

	_, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, 1))

	_, err = svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestSnapshotSkipsDeletedProfiles(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc, gdb := setupService(t, scoringOracle(t, &calls, 0))
	seedProfiles(t, gdb, 5)

	first, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 4)

	require.NoError(t, gdb.Delete(&db.Profile{}, 3).Error)

	second, err := svc.GetRankedUsers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, second, 3)
	for _, ru := range second {
		assert.NotEqual(t, uint64(3), ru.ID)
	}
}
