package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedDemoData resets the database and populates it with demo users,
// decisions, matches and a short conversation per mutual pair.
//
// Behavior:
//  1. Clears existing data in all engine tables.
//  2. Creates 20 users with hashed passwords and language sets drawn
//     from the given catalog (each teaches one language, learns another).
//  3. Generates decisions with ~70% accepts; every 3rd decision is made
//     mutual, committed as a symmetric match, and seeded with two messages.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedDemoData(db *gorm.DB, languages []string) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if len(languages) < 2 {
		return fmt.Errorf("need at least two languages to seed, got %d", len(languages))
	}

	// --- Fresh start ---
	for _, table := range []string{"messages", "conversations", "matches", "decisions", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences (only for MySQL)
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'profiles'")
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'messages'")
	}

	log.Println("Cleared existing data")

	// --- Seed Profiles ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		teach := languages[i%len(languages)]
		learn := languages[(i+1)%len(languages)]

		profile := Profile{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Bio:          fmt.Sprintf("Native %s speaker picking up %s", teach, learn),
			Teaches:      []string{teach},
			Learns:       []string{learn},
			Active:       true,
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// --- Seed Decisions ---
	counter := 0
	for actorID := uint64(1); actorID <= 20; actorID++ {
		for j := 0; j < 12; j++ { // each user decides on ~12 others
			targetID := uint64(r.Intn(20) + 1)
			if actorID == targetID {
				continue
			}

			var actor, target Profile
			if err := db.First(&actor, actorID).Error; err != nil {
				continue
			}
			if err := db.First(&target, targetID).Error; err != nil {
				continue
			}

			// accept probability 70%
			liked := r.Intn(100) < 70

			// guarantee mutual accepts every 3rd pair
			mutual := counter%3 == 0
			if mutual {
				liked = true
				recip := Decision{ActorID: targetID, TargetID: actorID, Liked: true}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
				}).Create(&recip)
			}

			decision := Decision{ActorID: actorID, TargetID: targetID, Liked: liked}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
			}).Create(&decision).Error; err != nil {
				return fmt.Errorf("failed to seed decision: %w", err)
			}

			if mutual {
				if err := seedMatchWithChat(db, actorID, targetID); err != nil {
					return err
				}
			}

			counter++
		}
	}

	return nil
}

// seedMatchWithChat commits the symmetric match rows and drops a short
// opening exchange into the pair's conversation.
func seedMatchWithChat(db *gorm.DB, a, b uint64) error {
	rows := []Match{
		{UserID: a, MatchedID: b},
		{UserID: b, MatchedID: a},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}

	convID := ConversationID(a, b)
	var count int64
	if err := db.Model(&Message{}).Where("conversation_id = ?", convID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	conv := Conversation{ID: convID, UserAID: lo, UserBID: hi, LastSeq: 2}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	messages := []Message{
		{ConversationID: convID, Seq: 1, SenderID: a, ReceiverID: b, Text: "Hey! Up for a language exchange?", ClientKey: uuid.NewString(), SentAt: now},
		{ConversationID: convID, Seq: 2, SenderID: b, ReceiverID: a, Text: "Sure, let's do it!", ClientKey: uuid.NewString(), SentAt: now.Add(time.Second)},
	}
	if err := db.Create(&messages).Error; err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}
	return nil
}

// SeedMinimalTestData loads a small deterministic fixture used by tests.
func SeedMinimalTestData(db *gorm.DB) error {
	// Clear
	for _, table := range []string{"messages", "conversations", "matches", "decisions", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}

	// Profiles
	profiles := []Profile{
		{ID: 1, Username: "leon", Email: "leon@test.com", PasswordHash: "x", Teaches: []string{"English"}, Learns: []string{"Spanish"}, Active: true},
		{ID: 2, Username: "alice", Email: "alice@test.com", PasswordHash: "x", Teaches: []string{"Spanish", "Italian"}, Learns: []string{"English"}, Active: true},
		{ID: 3, Username: "roshag", Email: "roshag@test.com", PasswordHash: "x", Teaches: []string{"German"}, Learns: []string{"English"}, Active: true},
	}
	if err := db.Create(&profiles).Error; err != nil {
		return err
	}

	// Decisions
	decisions := []Decision{
		{ActorID: 1, TargetID: 2, Liked: true},  // leon → alice (accept)
		{ActorID: 2, TargetID: 1, Liked: true},  // alice → leon (accept) → mutual
		{ActorID: 3, TargetID: 1, Liked: true},  // roshag → leon (accept, one-way)
		{ActorID: 1, TargetID: 3, Liked: false}, // leon → roshag (reject)
	}
	if err := db.Create(&decisions).Error; err != nil {
		return err
	}

	// The mutual pair above, committed symmetrically.
	matches := []Match{
		{UserID: 1, MatchedID: 2},
		{UserID: 2, MatchedID: 1},
	}
	return db.Create(&matches).Error
}
