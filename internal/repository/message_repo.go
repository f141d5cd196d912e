package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readmylips/core/internal/db"
)

// MessageRepository persists the append-only conversation log. Rows are
// never updated or deleted; all reads come back in (sent_at, seq) order,
// the conversation's total order.
type MessageRepository struct {
	db *gorm.DB

	// server clock for message timestamps; never a client clock
	now func() time.Time
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{
		db: database,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

// WithClock returns a copy using the given clock. Test hook for forcing
// same-millisecond timestamp ties.
func (r *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	return &MessageRepository{db: r.db, now: now}
}

// Insert appends a message, assigning the server timestamp and the next
// per-conversation sequence number.
//
// The sequence bump and the insert share one transaction, so concurrent
// appends to the same conversation serialize on the conversation row:
// the second writer cannot take its sequence until the first commits.
// Commit order therefore equals sequence order, which is what lets
// subscribers read strictly after a cursor without ever missing a row.
//
// The unique client key makes the write idempotent: a retried send with
// the same key is swallowed and the originally stored row is returned.
func (r *MessageRepository) Insert(ctx context.Context, msg *db.Message) (*db.Message, error) {
	a, b, err := db.PairFromConversationID(msg.ConversationID)
	if err != nil {
		return nil, err
	}

	duplicate := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := db.Conversation{ID: msg.ConversationID, UserAID: a, UserBID: b}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
			return err
		}

		// take the next sequence; the row lock holds until commit
		if err := tx.Model(&db.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumn("last_seq", gorm.Expr("last_seq + 1")).Error; err != nil {
			return err
		}
		var row db.Conversation
		if err := tx.Where("id = ?", msg.ConversationID).First(&row).Error; err != nil {
			return err
		}

		msg.Seq = row.LastSeq
		msg.SentAt = r.now()

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_key"}},
			DoNothing: true,
		}).Create(msg)
		if res.Error != nil {
			return res.Error
		}
		duplicate = res.RowsAffected == 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	if duplicate {
		// duplicate resend: hand back the stored original
		var existing db.Message
		if err := r.db.WithContext(ctx).
			Where("client_key = ?", msg.ClientKey).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return msg, nil
}

// ListAll returns every message of a conversation in total order.
func (r *MessageRepository) ListAll(ctx context.Context, conversationID string) ([]db.Message, error) {
	var messages []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, seq ASC").
		Find(&messages).Error
	return messages, err
}

// ListAfter returns the messages strictly after the (sentAt, seq)
// cursor, in total order. Subscribers use it to catch up after a
// wake-up without gaps or duplicates.
func (r *MessageRepository) ListAfter(
	ctx context.Context,
	conversationID string,
	sentAt time.Time,
	seq uint64,
) ([]db.Message, error) {
	var messages []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Where("(sent_at > ? OR (sent_at = ? AND seq > ?))", sentAt, sentAt, seq).
		Order("sent_at ASC, seq ASC").
		Find(&messages).Error
	return messages, err
}
