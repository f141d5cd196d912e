package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/readmylips/core/internal/app"
	"github.com/readmylips/core/internal/cache"
	"github.com/readmylips/core/internal/config"
	"github.com/readmylips/core/internal/db"
	apperrors "github.com/readmylips/core/internal/errors"
	"github.com/readmylips/core/internal/logger"
	"github.com/readmylips/core/internal/repository"
	"github.com/readmylips/core/internal/service/chat"
	"github.com/readmylips/core/internal/service/discovery"
	"github.com/readmylips/core/internal/service/match"
)

// setupAppCtx wires an in-memory SQLite DB and a miniredis into an
// AppContext shared by the services under test.
func setupAppCtx(t *testing.T) *app.AppContext {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Engine.FeedLimit = 50
	cfg.Engine.AdmirerPageSize = 5
	cfg.Engine.RetryBudget = 3
	cfg.Engine.RetryBackoff = time.Millisecond

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Client.Close() })

	return app.New(database, redisCache, logger.L(), cfg)
}

// seedPair creates the two-profile fixture used by most tests:
// leon (1) learns Spanish, alice (2) teaches Spanish and French.
func seedPair(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	profiles := []db.Profile{
		{ID: 1, Username: "leon", Email: "leon@test.com", PasswordHash: "x", Teaches: []string{"English"}, Learns: []string{"Spanish"}, Active: true},
		{ID: 2, Username: "alice", Email: "alice@test.com", PasswordHash: "x", Teaches: []string{"Spanish", "French"}, Learns: []string{"English"}, Active: true},
	}
	require.NoError(t, gdb.Create(&profiles).Error)
}

func record(t *testing.T, gdb *gorm.DB, userID uint64) *repository.DecisionRecord {
	t.Helper()
	rec, err := repository.NewDecisionRepository(gdb).GetRecord(context.Background(), userID)
	require.NoError(t, err)
	return rec
}

func TestRecordDecision_NoMatchUntilMutual(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	out, err := svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.False(t, out.MatchCreated)

	rec := record(t, appCtx.DB, 1)
	assert.Equal(t, []uint64{2}, rec.Likes)
	assert.Empty(t, rec.Matches)
}

func TestRecordDecision_MutualCreatesSymmetricMatch(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	_, err := svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)

	out, err := svc.RecordDecision(ctx, 2, 1, match.Accept)
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.True(t, out.MatchCreated)

	assert.Equal(t, []uint64{2}, record(t, appCtx.DB, 1).Matches)
	assert.Equal(t, []uint64{1}, record(t, appCtx.DB, 2).Matches)
}

func TestRecordDecision_Idempotent(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	_, err := svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)
	_, err = svc.RecordDecision(ctx, 2, 1, match.Accept)
	require.NoError(t, err)

	// replaying the accept changes nothing and reports no new match
	out, err := svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.False(t, out.MatchCreated)

	rec := record(t, appCtx.DB, 1)
	assert.Equal(t, []uint64{2}, rec.Likes)
	assert.Equal(t, []uint64{2}, rec.Matches)

	var count int64
	appCtx.DB.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestRecordDecision_RejectThenAccept(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	_, err := svc.RecordDecision(ctx, 1, 2, match.Reject)
	require.NoError(t, err)

	rec := record(t, appCtx.DB, 1)
	assert.Equal(t, []uint64{2}, rec.Dislikes)

	_, err = svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)

	rec = record(t, appCtx.DB, 1)
	assert.Equal(t, []uint64{2}, rec.Likes)
	assert.Empty(t, rec.Dislikes)
}

func TestRecordDecision_RejectAfterMatchIsNoOp(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	_, err := svc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)
	_, err = svc.RecordDecision(ctx, 2, 1, match.Accept)
	require.NoError(t, err)

	out, err := svc.RecordDecision(ctx, 1, 2, match.Reject)
	require.NoError(t, err)
	assert.True(t, out.Matched)

	// the match and the like both survive
	rec := record(t, appCtx.DB, 1)
	assert.Equal(t, []uint64{2}, rec.Likes)
	assert.Empty(t, rec.Dislikes)
	assert.Equal(t, []uint64{2}, rec.Matches)
	assert.Equal(t, []uint64{1}, record(t, appCtx.DB, 2).Matches)
}

func TestRecordDecision_Validation(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	svc := match.NewService(appCtx)

	_, err := svc.RecordDecision(ctx, 1, 1, match.Accept)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.RecordDecision(ctx, 0, 2, match.Accept)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.RecordDecision(ctx, 1, 2, match.Verdict("maybe"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordDecision_ConcurrentMutualAccepts(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)
	svc := match.NewService(appCtx)

	var outA, outB match.Outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := svc.RecordDecision(gctx, 1, 2, match.Accept)
		outA = out
		return err
	})
	g.Go(func() error {
		out, err := svc.RecordDecision(gctx, 2, 1, match.Accept)
		outB = out
		return err
	})
	require.NoError(t, g.Wait())

	// whatever the interleaving, the records agree symmetrically
	assert.Equal(t, []uint64{2}, record(t, appCtx.DB, 1).Matches)
	assert.Equal(t, []uint64{1}, record(t, appCtx.DB, 2).Matches)

	// and the "new match" signal fired exactly once
	created := 0
	if outA.MatchCreated {
		created++
	}
	if outB.MatchCreated {
		created++
	}
	assert.Equal(t, 1, created)
}

// End-to-end: a Spanish learner finds a partner, matches, and says hola.
func TestLearnerFlow(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)
	seedPair(t, appCtx.DB)

	discoverySvc := discovery.NewService(appCtx)
	matchSvc := match.NewService(appCtx)
	chatSvc := chat.NewService(appCtx)

	// alice teaches Spanish, so she shows up for leon
	feed, err := discoverySvc.Feed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "alice", feed[0].Username)

	// leon accepts; alice has not decided yet
	out, err := matchSvc.RecordDecision(ctx, 1, 2, match.Accept)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Empty(t, record(t, appCtx.DB, 1).Matches)

	// alice accepts back
	out, err = matchSvc.RecordDecision(ctx, 2, 1, match.Accept)
	require.NoError(t, err)
	assert.True(t, out.MatchCreated)

	// the pair's conversation resolves and carries the first message
	convID := chat.ConversationID(1, 2)
	assert.Equal(t, convID, chat.ConversationID(2, 1))

	_, err = chatSvc.Append(ctx, convID, 1, 2, "Hola")
	require.NoError(t, err)

	history, err := chatSvc.History(ctx, convID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].SenderID)
	assert.Equal(t, "Hola", history[0].Text)

	// matched users no longer appear in each other's feeds
	feed, err = discoverySvc.Feed(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, feed)
}
