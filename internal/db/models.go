package db

import (
	"time"
)

// Profile is a language-exchange user profile. The engine treats it as
// read-only: rows are written by signup/profile collaborators (or the
// seeder), never by the matching core.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Bio          string `gorm:"size:512"`
	// Teaches / Learns are the user's language sets, stored as JSON.
	Teaches   []string  `gorm:"serializer:json;type:text"`
	Learns    []string  `gorm:"serializer:json;type:text"`
	Active    bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Decision represents an actor's accept/reject verdict on a target.
//
// Composite PK: (ActorID, TargetID)
//   - Ensures a single row per ordered pair (overwrite guarantee), which
//     makes "likes and dislikes are disjoint" structural: a new verdict
//     atomically replaces the old one.
//
// Indexes:
//   - idx_target_liked_updated_actor(target_id, liked, updated_at DESC, actor_id)
//     Optimizes "who liked me" listings with pagination.
//   - idx_actor_target_liked(actor_id, target_id, liked)
//     Optimizes O(1) mutual-like lookups.
type Decision struct {
	ActorID   uint64    `gorm:"primaryKey;index:idx_actor_target_liked,priority:1"`
	TargetID  uint64    `gorm:"primaryKey;index:idx_target_liked_updated_actor,priority:1;index:idx_actor_target_liked,priority:2"`
	Liked     bool      `gorm:"not null;index:idx_target_liked_updated_actor,priority:2;index:idx_actor_target_liked,priority:3"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_target_liked_updated_actor,priority:3,sort:desc"`
}

// Match is one half of a confirmed mutual accept. A match between A and B
// is stored as two symmetric rows (A,B) and (B,A); both halves are written
// in one transaction with insert-or-ignore semantics, so replaying the
// commit from either side is a no-op.
type Match struct {
	UserID    uint64    `gorm:"primaryKey"`
	MatchedID uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Conversation anchors one message thread per matched pair. The row is
// created lazily on first append; LastSeq is the thread's write-order
// counter. Bumping it in the same transaction as the message insert
// serializes concurrent appends on the row lock, so per-conversation
// commit order always equals sequence order and an after-cursor reader
// can never skip a message that commits late with a smaller sequence.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserAID   uint64    `gorm:"not null"`
	UserBID   uint64    `gorm:"not null"`
	LastSeq   uint64    `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is an append-only chat message. Rows are never updated or
// deleted. Seq is the per-conversation write-order counter; it breaks
// same-millisecond timestamp ties, so read order (sent_at, seq) is a
// strict total order within a conversation.
//
// ClientKey carries the sender's idempotency key; the unique index turns
// a retried send into a fetch of the already-stored row.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_seq,priority:1"`
	Seq            uint64    `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:2"`
	SenderID       uint64    `gorm:"not null"`
	ReceiverID     uint64    `gorm:"not null"`
	Text           string    `gorm:"size:2048;not null"`
	ClientKey      string    `gorm:"uniqueIndex;size:36;not null"`
	SentAt         time.Time `gorm:"not null"`
}
