package match

import (
	"context"
	"fmt"
	"time"

	"github.com/readmylips/core/internal/app"
	apperrors "github.com/readmylips/core/internal/errors"
	"github.com/readmylips/core/internal/repository"
)

// Verdict is a user's call on a candidate.
type Verdict string

const (
	Accept Verdict = "accept"
	Reject Verdict = "reject"
)

// Outcome reports what a decision produced. MatchCreated is informational
// (drive a notification, not correctness): when both sides race through
// the commit, at most one of them observes it as true.
type Outcome struct {
	Matched      bool
	MatchCreated bool
}

// Service is the match reconciler: it applies a decision to the actor's
// record and, on an accept, performs the race-safe mutual-match check and
// the symmetric commit.
//
// No lock spans the two users' records. The actor's decision write is a
// single-row atomic upsert, and the dual match commit is an idempotent
// set union, so concurrent reconciliation from both sides of a pair
// converges without duplication or omission.
type Service struct {
	appCtx       *app.AppContext
	decisionRepo *repository.DecisionRepository
	matchRepo    *repository.MatchRepository

	retryBudget  int
	retryBackoff time.Duration
}

// NewService creates the reconciler with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	budget := appCtx.Config.Engine.RetryBudget
	if budget <= 0 {
		budget = 3
	}
	return &Service{
		appCtx:       appCtx,
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		matchRepo:    repository.NewMatchRepository(appCtx.DB),
		retryBudget:  budget,
		retryBackoff: appCtx.Config.Engine.RetryBackoff,
	}
}

// RecordDecision durably applies the actor's verdict on the target and
// returns the match outcome.
//
// Behavior:
//   - Validates ids (non-zero, distinct) and the verdict.
//   - Rejecting an already-matched target is a no-op: matches are not
//     revocable, the existing match and like stay untouched.
//   - The decision upsert is atomic; a new verdict displaces the old one
//     so the target never sits in both the like and dislike sets.
//   - On accept, reads the target's record; if the target already
//     accepted the actor, commits the symmetric match idempotently.
//   - Store write collisions retry up to the configured budget; if the
//     budget runs out the caller gets a transient error and may re-issue
//     the identical call, which is itself idempotent. A lost reciprocal
//     race self-heals the next time either side reconciles.
func (s *Service) RecordDecision(ctx context.Context, actorID, targetID uint64, verdict Verdict) (Outcome, error) {
	log := s.appCtx.Logger
	log.Debug("RecordDecision called", "actor", actorID, "target", targetID, "verdict", verdict)

	if actorID == 0 || targetID == 0 {
		return Outcome{}, fmt.Errorf("%w: user ids must be non-zero", apperrors.ErrValidation)
	}
	if actorID == targetID {
		return Outcome{}, fmt.Errorf("%w: cannot decide on yourself", apperrors.ErrValidation)
	}
	if verdict != Accept && verdict != Reject {
		return Outcome{}, fmt.Errorf("%w: unknown verdict %q", apperrors.ErrValidation, verdict)
	}

	matched, err := s.matchRepo.Exists(ctx, actorID, targetID)
	if err != nil {
		return Outcome{}, err
	}
	if matched && verdict == Reject {
		// matches are monotone; a late reject does not demote one
		log.Debug("reject ignored for existing match", "actor", actorID, "target", targetID)
		return Outcome{Matched: true}, nil
	}

	liked := verdict == Accept
	if err := s.withRetry(ctx, func() error {
		return s.decisionRepo.Upsert(ctx, actorID, targetID, liked)
	}); err != nil {
		return Outcome{}, err
	}

	s.nudgeAdmirerCount(ctx, targetID, liked)

	if !liked {
		return Outcome{}, nil
	}

	// reciprocal check + idempotent commit, under the same retry budget
	outcome := Outcome{Matched: matched}
	err = s.withRetry(ctx, func() error {
		reciprocal, err := s.decisionRepo.HasLiked(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		if !reciprocal {
			// the target has not accepted yet; their side completes the
			// match if they ever do
			return nil
		}
		created, err := s.matchRepo.CommitMutual(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		outcome.Matched = true
		outcome.MatchCreated = created
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if outcome.MatchCreated {
		log.Info("match created", "actor", actorID, "target", targetID)
	}
	return outcome, nil
}

// withRetry runs fn, retrying store write collisions with a small
// backoff. Exhaustion surfaces as a transient error the caller can
// safely re-issue.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.retryBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = fn()
		if err == nil || !apperrors.Retryable(err) {
			return err
		}
		s.appCtx.Logger.Debug("retrying store write", "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrTransient, err)
}

// nudgeAdmirerCount keeps the cached "liked you" counter roughly fresh.
// Best effort: the DB count is the fallback on any miss or drift.
func (s *Service) nudgeAdmirerCount(ctx context.Context, targetID uint64, liked bool) {
	key := s.appCtx.RedisCache.KeyForAdmirerCount(targetID)
	if liked {
		_, _ = s.appCtx.RedisCache.Incr(ctx, key)
	} else {
		_, _ = s.appCtx.RedisCache.Decr(ctx, key)
	}
	_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
}
