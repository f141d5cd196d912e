package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readmylips/core/internal/db"
	"github.com/readmylips/core/internal/utils/pagination"
)

// DecisionRepository provides data access methods for the Decision model.
// It encapsulates all queries related to accepts/rejects between users.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// DecisionRecord is the read-side view of one user's decision state,
// assembled from the decisions and matches tables. A user with no rows
// yet gets empty sets, never an error.
type DecisionRecord struct {
	OwnerID  uint64
	Likes    []uint64
	Dislikes []uint64
	Matches  []uint64
}

// Upsert inserts or overwrites the decision actor → target.
//
// The composite PK gives the overwrite guarantee: a new verdict replaces
// the old row in a single atomic write, so the target can never sit in
// both the like and dislike sets.
func (r *DecisionRepository) Upsert(
	ctx context.Context,
	actorID, targetID uint64,
	liked bool,
) error {
	decision := db.Decision{
		ActorID:  actorID,
		TargetID: targetID,
		Liked:    liked,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).
		Create(&decision).Error
}

// HasLiked checks whether an actor has accepted a target.
// Used for the reciprocal check when reconciling a new accept.
func (r *DecisionRepository) HasLiked(
	ctx context.Context,
	actorID, targetID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.actor_id = ? AND d.target_id = ? AND d.liked = true", actorID, targetID).
		Count(&count).Error
	return count > 0, err
}

// GetRecord assembles the owner's full decision record.
func (r *DecisionRepository) GetRecord(ctx context.Context, ownerID uint64) (*DecisionRecord, error) {
	record := &DecisionRecord{OwnerID: ownerID}

	var decisions []db.Decision
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", ownerID).
		Order("target_id ASC").
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}
	for _, d := range decisions {
		if d.Liked {
			record.Likes = append(record.Likes, d.TargetID)
		} else {
			record.Dislikes = append(record.Dislikes, d.TargetID)
		}
	}

	var matches []db.Match
	err = r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("matched_id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		record.Matches = append(record.Matches, m.MatchedID)
	}

	return record, nil
}

// GetAdmirers returns all users who accepted the given target.
//
// Behavior:
//   - Only decisions where target_id = X and liked = true are returned.
//   - Excludes users the target explicitly rejected.
//   - Ordered by updated_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *DecisionRepository) GetAdmirers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	var decisions []db.Decision

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.target_id = ? AND d.liked = true", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.target_id = d.actor_id
				  AND d2.liked = false
			)`, targetID).
		Order("d.updated_at DESC, d.actor_id DESC").
		Limit(limit + 1)

	// apply cursor
	if cursor.ActorID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(d.updated_at < ? OR (d.updated_at = ? AND d.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.ActorID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// CountAdmirers returns how many users accepted the given target,
// excluding users the target explicitly rejected. Used together with
// the Redis counter (DB is the fallback).
func (r *DecisionRepository) CountAdmirers(
	ctx context.Context,
	targetID uint64,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.target_id = ? AND d.liked = true", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.target_id = d.actor_id
				  AND d2.liked = false
			)`, targetID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
