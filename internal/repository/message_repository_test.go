package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmylips/core/internal/db"
	"github.com/readmylips/core/internal/repository"
)

func TestInsertAssignsSeqAndServerTimestamp(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)
	convID := db.ConversationID(2, 1)

	m1, err := repo.Insert(ctx, &db.Message{
		ConversationID: convID, SenderID: 1, ReceiverID: 2,
		Text: "hola", ClientKey: uuid.NewString(),
	})
	require.NoError(t, err)
	m2, err := repo.Insert(ctx, &db.Message{
		ConversationID: convID, SenderID: 2, ReceiverID: 1,
		Text: "hello", ClientKey: uuid.NewString(),
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), m1.Seq)
	assert.Equal(t, uint64(2), m2.Seq)
	assert.False(t, m1.SentAt.IsZero())
	assert.False(t, m2.SentAt.Before(m1.SentAt))
}

func TestInsertRejectsMalformedConversationID(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	_, err := repo.Insert(ctx, &db.Message{
		ConversationID: "not-a-pair", SenderID: 1, ReceiverID: 2,
		Text: "hi", ClientKey: uuid.NewString(),
	})
	assert.Error(t, err)
}

func TestInsertDuplicateClientKeyReturnsOriginal(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)
	convID := db.ConversationID(1, 2)
	key := uuid.NewString()

	first, err := repo.Insert(ctx, &db.Message{
		ConversationID: convID, SenderID: 1, ReceiverID: 2,
		Text: "hola", ClientKey: key,
	})
	require.NoError(t, err)

	retry, err := repo.Insert(ctx, &db.Message{
		ConversationID: convID, SenderID: 1, ReceiverID: 2,
		Text: "hola", ClientKey: key,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, retry.ID)
	assert.Equal(t, first.Seq, retry.Seq)

	stored, err := repo.ListAll(ctx, convID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestListOrderIsDeterministicUnderTimestampTies(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)

	// clock that hands out a late timestamp first, then identical ones
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base.Add(time.Second), base, base}
	i := 0
	repo := repository.NewMessageRepository(dbase).WithClock(func() time.Time {
		ts := ticks[i%len(ticks)]
		i++
		return ts
	})

	convID := db.ConversationID(1, 2)
	late, err := repo.Insert(ctx, &db.Message{ConversationID: convID, SenderID: 1, ReceiverID: 2, Text: "third", ClientKey: uuid.NewString()})
	require.NoError(t, err)
	tieA, err := repo.Insert(ctx, &db.Message{ConversationID: convID, SenderID: 2, ReceiverID: 1, Text: "first", ClientKey: uuid.NewString()})
	require.NoError(t, err)
	tieB, err := repo.Insert(ctx, &db.Message{ConversationID: convID, SenderID: 1, ReceiverID: 2, Text: "second", ClientKey: uuid.NewString()})
	require.NoError(t, err)

	// (sent_at, seq) order: the two tied messages by seq, then the late one
	want := []uint64{tieA.ID, tieB.ID, late.ID}
	for run := 0; run < 2; run++ {
		messages, err := repo.ListAll(ctx, convID)
		require.NoError(t, err)
		got := make([]uint64, 0, len(messages))
		for _, m := range messages {
			got = append(got, m.ID)
		}
		assert.Equal(t, want, got, "run %d", run)
	}
}

func TestListAfterCursor(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)
	convID := db.ConversationID(1, 2)

	var all []*db.Message
	for _, text := range []string{"one", "two", "three"} {
		m, err := repo.Insert(ctx, &db.Message{
			ConversationID: convID, SenderID: 1, ReceiverID: 2,
			Text: text, ClientKey: uuid.NewString(),
		})
		require.NoError(t, err)
		all = append(all, m)
	}

	rest, err := repo.ListAfter(ctx, convID, all[0].SentAt, all[0].Seq)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "two", rest[0].Text)
	assert.Equal(t, "three", rest[1].Text)

	none, err := repo.ListAfter(ctx, convID, all[2].SentAt, all[2].Seq)
	require.NoError(t, err)
	assert.Empty(t, none)
}
