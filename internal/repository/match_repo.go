package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readmylips/core/internal/db"
)

// MatchRepository owns the symmetric match rows. The only write it
// exposes is the idempotent dual-row commit: a monotone set union, never
// a conditional create, which is what makes concurrent commits from both
// sides of a pair harmless.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CommitMutual records the match between a and b on both users' records
// in one transaction. Both inserts are insert-or-ignore, so re-running
// the commit (from either side, including concurrently) is a no-op.
//
// The returned flag reports whether the (a, b) half was newly inserted.
// It exists for notification purposes only and never gates correctness.
func (r *MatchRepository) CommitMutual(ctx context.Context, a, b uint64) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Match
		err := tx.Where("user_id = ? AND matched_id = ?", a, b).First(&existing).Error
		switch {
		case err == nil:
			// already committed, fall through to the idempotent inserts
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
		default:
			return err
		}

		rows := []db.Match{
			{UserID: a, MatchedID: b},
			{UserID: b, MatchedID: a},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Exists reports whether a's record lists b as a match.
func (r *MatchRepository) Exists(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_id = ? AND matched_id = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns the ids of everyone matched with the user,
// ascending for deterministic reads.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]uint64, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("matched_id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.MatchedID)
	}
	return ids, nil
}
