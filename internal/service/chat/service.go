package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readmylips/core/internal/app"
	"github.com/readmylips/core/internal/db"
	apperrors "github.com/readmylips/core/internal/errors"
	"github.com/readmylips/core/internal/repository"
)

// Service is the conversation log: canonical pair identity plus ordered
// append, history and live subscription of messages.
//
// Ordering never comes from the delivery transport. Messages order by
// (sent_at, seq) in the store; Redis pub/sub only carries wake-ups, and a
// woken subscriber re-reads everything past its cursor. Out-of-order or
// dropped wake-ups therefore cost latency, not correctness.
type Service struct {
	appCtx      *app.AppContext
	messageRepo *repository.MessageRepository
}

// NewService creates the conversation log with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		messageRepo: repository.NewMessageRepository(appCtx.DB),
	}
}

// ConversationID derives the canonical conversation key for a user pair.
// Symmetric and collision-free; see db.ConversationID.
func ConversationID(a, b uint64) string {
	return db.ConversationID(a, b)
}

// Append validates and persists a message with a server-assigned
// timestamp and a fresh idempotency key, then wakes subscribers.
func (s *Service) Append(ctx context.Context, conversationID string, senderID, receiverID uint64, text string) (*db.Message, error) {
	return s.AppendWithKey(ctx, conversationID, senderID, receiverID, text, uuid.NewString())
}

// AppendWithKey is Append with a caller-supplied idempotency key: a
// sender that lost the response to a send may re-issue it with the same
// key and will get the originally stored message back, never a duplicate.
func (s *Service) AppendWithKey(ctx context.Context, conversationID string, senderID, receiverID uint64, text, clientKey string) (*db.Message, error) {
	log := s.appCtx.Logger
	log.Debug("Append called", "conversation", conversationID, "sender", senderID)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", apperrors.ErrValidation)
	}
	if clientKey == "" {
		return nil, fmt.Errorf("%w: client key is empty", apperrors.ErrValidation)
	}
	if err := validateParticipants(conversationID, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := &db.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		ClientKey:      clientKey,
	}

	stored, err := s.messageRepo.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	// wake-up only; subscribers re-read from the store
	if err := s.appCtx.RedisCache.PublishConversationEvent(ctx, conversationID); err != nil {
		log.Warn("failed to publish conversation event", "conversation", conversationID, "err", err)
	}

	return stored, nil
}

// History returns all messages of a conversation to date, in the same
// total order every call: (sent_at, seq) ascending.
func (s *Service) History(ctx context.Context, conversationID string) ([]db.Message, error) {
	if _, _, err := db.PairFromConversationID(conversationID); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return s.messageRepo.ListAll(ctx, conversationID)
}

// Subscribe delivers the conversation's messages to the returned channel:
// full backlog first, then live updates, each message exactly once and in
// (sent_at, seq) order. The channel closes when ctx is canceled.
//
// The pub/sub subscription is opened before the backlog read, so a
// message landing between the two shows up as a queued wake-up and is
// picked up by the first after-cursor read; nothing falls in the gap.
func (s *Service) Subscribe(ctx context.Context, conversationID string) (<-chan db.Message, error) {
	if _, _, err := db.PairFromConversationID(conversationID); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	sub := s.appCtx.RedisCache.SubscribeConversation(ctx, conversationID)
	out := make(chan db.Message)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		log := s.appCtx.Logger

		var lastSentAt time.Time
		var lastSeq uint64

		deliver := func(messages []db.Message) bool {
			for _, m := range messages {
				select {
				case out <- m:
					lastSentAt, lastSeq = m.SentAt, m.Seq
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		backlog, err := s.messageRepo.ListAll(ctx, conversationID)
		if err != nil {
			log.Error("failed to read backlog", "conversation", conversationID, "err", err)
			return
		}
		if !deliver(backlog) {
			return
		}

		events := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				fresh, err := s.messageRepo.ListAfter(ctx, conversationID, lastSentAt, lastSeq)
				if err != nil {
					log.Warn("failed to read after cursor", "conversation", conversationID, "err", err)
					continue
				}
				if !deliver(fresh) {
					return
				}
			}
		}
	}()

	return out, nil
}

// validateParticipants checks that sender and receiver are exactly the
// pair the conversation id names.
func validateParticipants(conversationID string, senderID, receiverID uint64) error {
	a, b, err := db.PairFromConversationID(conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if senderID == receiverID {
		return fmt.Errorf("%w: sender and receiver are the same user", apperrors.ErrValidation)
	}
	lo, hi := senderID, receiverID
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo != a || hi != b {
		return fmt.Errorf("%w: users %d,%d are not the conversation pair", apperrors.ErrValidation, senderID, receiverID)
	}
	return nil
}
