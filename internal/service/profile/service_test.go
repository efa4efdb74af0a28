package profile_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
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
	"github.com/emberly-app/emberly/internal/service/profile"
)

func setupService(t *testing.T) (*profile.Service, *gorm.DB) {
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

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(
		cfg,
		dbase,
		cache.NewRedisCache(cfg),
		oracle.NewClient(oracle.Options{URL: "http://unused"}),
		events.NewBus(),
		metrics.New(),
		logger,
	)
	return profile.NewService(appCtx), dbase
}

func seedBareProfile(t *testing.T, gdb *gorm.DB, id uint64) {
	t.Helper()
	p := db.Profile{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		Email:        fmt.Sprintf("u%d@test.com", id),
		PasswordHash: "x",
		Gender:       "male",
		Age:          25,
	}
	require.NoError(t, gdb.Create(&p).Error)
}

func strPtr(s string) *string       { return &s }
func intPtr(n int) *int             { return &n }
func listPtr(v ...string) *[]string { return &v }

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	seedBareProfile(t, gdb, 1)

	view, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), view.ID)
	assert.False(t, view.Verified)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

// TestUpdateCompletesVerification walks a bare profile to verified by
// filling in the attributes scoring requires.
func TestUpdateCompletesVerification(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	seedBareProfile(t, gdb, 1)

	view, err := svc.Update(ctx, 1, &profile.UpdateInput{
		Name:      strPtr("Linh"),
		Location:  strPtr("Hanoi"),
		Interests: listPtr("hiking", "coffee"),
	})
	require.NoError(t, err)
	assert.True(t, view.Verified)
	assert.Equal(t, "Linh", view.Name)
	assert.Equal(t, []string{"hiking", "coffee"}, view.Interests)

	// round-trips through the DB, including the serialized list
	var stored db.Profile
	require.NoError(t, gdb.First(&stored, 1).Error)
	assert.True(t, stored.Verified)
	assert.Equal(t, []string{"hiking", "coffee"}, stored.Interests)
}

func TestUpdatePartialKeepsVerification(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	seedBareProfile(t, gdb, 1)

	_, err := svc.Update(ctx, 1, &profile.UpdateInput{
		Name:      strPtr("Linh"),
		Location:  strPtr("Hanoi"),
		Interests: listPtr("hiking"),
	})
	require.NoError(t, err)

	view, err := svc.Update(ctx, 1, &profile.UpdateInput{Bio: strPtr("hello")})
	require.NoError(t, err)
	assert.True(t, view.Verified)
	assert.Equal(t, "hello", view.Bio)
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	seedBareProfile(t, gdb, 1)

	cases := []profile.UpdateInput{
		{Age: intPtr(17)},
		{Age: intPtr(101)},
		{Name: strPtr("x")},
		{HeightCM: intPtr(99)},
		{WeightKG: intPtr(301)},
		{Gender: strPtr("robot")},
		{Interests: listPtr("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k")},
	}
	for _, in := range cases {
		_, err := svc.Update(ctx, 1, &in)
		assert.ErrorIs(t, err, svcErr.ErrInvalidArgument, "input: %+v", in)
	}

	_, err := svc.Update(ctx, 1, &profile.UpdateInput{})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestUpdateUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Update(ctx, 999, &profile.UpdateInput{Name: strPtr("Linh")})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

// TestUpdateInvalidatesSnapshot checks that editing scoring attributes
// drops the cached ranking.
func TestUpdateInvalidatesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	seedBareProfile(t, gdb, 1)

	row := db.Ranking{UserID: 1, TargetUserID: 2, Score: 90, Position: 1, ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, gdb.Create(&row).Error)

	_, err := svc.Update(ctx, 1, &profile.UpdateInput{Location: strPtr("Da Nang")})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&db.Ranking{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
