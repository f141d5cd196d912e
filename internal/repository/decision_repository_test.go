package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/readmylips/core/internal/db"
	"github.com/readmylips/core/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	// a single conn serializes concurrent test writers the way a real
	// server pool would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestUpsertOverwritesVerdict(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	// insert accept
	err := repo.Upsert(ctx, 1, 2, true)
	assert.NoError(t, err)

	// overwrite with reject
	err = repo.Upsert(ctx, 1, 2, false)
	assert.NoError(t, err)

	var d db.Decision
	_ = dbase.First(&d).Error
	assert.Equal(t, false, d.Liked)

	// still exactly one row for the pair
	var count int64
	dbase.Model(&db.Decision{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHasLiked(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	require.NoError(t, repo.Upsert(ctx, 1, 2, true))
	require.NoError(t, repo.Upsert(ctx, 2, 3, false))

	liked, err := repo.HasLiked(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, liked)

	liked, err = repo.HasLiked(ctx, 2, 3)
	assert.NoError(t, err)
	assert.False(t, liked)

	liked, err = repo.HasLiked(ctx, 2, 1)
	assert.NoError(t, err)
	assert.False(t, liked)
}

func TestGetRecord(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	require.NoError(t, repo.Upsert(ctx, 1, 2, true))
	require.NoError(t, repo.Upsert(ctx, 1, 3, false))
	require.NoError(t, dbase.Create(&[]db.Match{
		{UserID: 1, MatchedID: 2},
		{UserID: 2, MatchedID: 1},
	}).Error)

	record, err := repo.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.OwnerID)
	assert.Equal(t, []uint64{2}, record.Likes)
	assert.Equal(t, []uint64{3}, record.Dislikes)
	assert.Equal(t, []uint64{2}, record.Matches)
}

func TestGetRecord_FirstTimeUserIsEmpty(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	record, err := repo.GetRecord(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, record.Likes)
	assert.Empty(t, record.Dislikes)
	assert.Empty(t, record.Matches)
}

func TestGetAdmirersAndPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	// actors 1,2 accepted target 99
	_ = repo.Upsert(ctx, 1, 99, true)
	_ = repo.Upsert(ctx, 2, 99, true)
	// target rejected actor 2 → exclude
	_ = repo.Upsert(ctx, 99, 2, false)

	decisions, _, err := repo.GetAdmirers(ctx, 99, nil, 10)
	assert.NoError(t, err)
	assert.Len(t, decisions, 1)
	assert.Equal(t, uint64(1), decisions[0].ActorID)
}

func TestCountAdmirers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	_ = repo.Upsert(ctx, 1, 99, true)
	_ = repo.Upsert(ctx, 2, 99, true)
	_ = repo.Upsert(ctx, 3, 99, false)
	_ = repo.Upsert(ctx, 99, 2, false)

	count, err := repo.CountAdmirers(ctx, 99)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
