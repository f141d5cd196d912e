package discovery

import (
	"context"
	"strconv"
	"time"

	"github.com/readmylips/core/internal/app"
	"github.com/readmylips/core/internal/db"
	"github.com/readmylips/core/internal/domain/compat"
	"github.com/readmylips/core/internal/repository"
)

// Service produces the candidate feed and the "liked you" views.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx       *app.AppContext
	profileRepo  *repository.ProfileRepository
	decisionRepo *repository.DecisionRepository
}

// NewService creates a new discovery service with dependencies from
// AppContext (DB via repositories, RedisCache for counters).
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:       appCtx,
		profileRepo:  repository.NewProfileRepository(appCtx.DB),
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
	}
}

// Feed returns the viewer's candidate sequence: compatible profiles the
// viewer has not accepted or matched, ordered by id for a deterministic
// snapshot.
//
// Exclusion rules:
//   - the viewer themselves;
//   - everyone in the viewer's likes and matches;
//   - rejected users stay eligible — a "no" is not permanent.
//
// A viewer with no decision record yet just gets empty exclusions
// (first-time use), never an error. An unknown viewer id is ErrNotFound.
func (s *Service) Feed(ctx context.Context, viewerID uint64) ([]db.Profile, error) {
	s.appCtx.Logger.Debug("Feed called", "viewer", viewerID)

	viewer, err := s.profileRepo.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	record, err := s.decisionRepo.GetRecord(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uint64]struct{}, len(record.Likes)+len(record.Matches)+1)
	excluded[viewerID] = struct{}{}
	for _, id := range record.Likes {
		excluded[id] = struct{}{}
	}
	for _, id := range record.Matches {
		excluded[id] = struct{}{}
	}

	profiles, err := s.profileRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	limit := s.appCtx.Config.Engine.FeedLimit
	feed := make([]db.Profile, 0, limit)
	for i := range profiles {
		candidate := &profiles[i]
		if _, skip := excluded[candidate.ID]; skip {
			continue
		}
		if !compat.Compatible(viewer, candidate) {
			continue
		}
		feed = append(feed, *candidate)
		if len(feed) >= limit {
			break
		}
	}

	s.appCtx.Logger.Debug("Feed result", "viewer", viewerID, "candidates", len(feed))
	return feed, nil
}

// Admirer is one entry of a "liked you" listing.
type Admirer struct {
	ActorID       uint64
	UnixTimestamp uint64
}

// ListAdmirers returns the users who accepted the given user, newest
// first, excluding anyone the user explicitly rejected. Supports
// cursor-based pagination via the opaque token.
func (s *Service) ListAdmirers(ctx context.Context, userID uint64, paginationToken *string) ([]Admirer, *string, error) {
	s.appCtx.Logger.Debug("ListAdmirers called", "user", userID)

	limit := s.appCtx.Config.Engine.AdmirerPageSize
	decisions, nextToken, err := s.decisionRepo.GetAdmirers(ctx, userID, paginationToken, limit)
	if err != nil {
		s.appCtx.Logger.Error("GetAdmirers failed", "err", err)
		return nil, nil, err
	}

	admirers := make([]Admirer, 0, len(decisions))
	for _, d := range decisions {
		admirers = append(admirers, Admirer{
			ActorID:       d.ActorID,
			UnixTimestamp: uint64(d.UpdatedAt.UnixMilli()),
		})
	}
	return admirers, nextToken, nil
}

// CountAdmirers returns how many users accepted the given user.
// Cache-first strategy:
//  1. Attempts to read from Redis (admirers:count:userID).
//  2. On cache miss or parse error, falls back to the DB count.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountAdmirers(ctx context.Context, userID uint64) (uint64, error) {
	s.appCtx.Logger.Debug("CountAdmirers called", "user", userID)

	key := s.appCtx.RedisCache.KeyForAdmirerCount(userID)

	// try cache first
	if cached, _ := s.appCtx.RedisCache.Get(ctx, key); cached != "" {
		if n, err := strconv.ParseUint(cached, 10, 64); err == nil {
			// refresh TTL since this user is active
			_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
			return n, nil
		}
	}

	// fallback: DB
	count, err := s.decisionRepo.CountAdmirers(ctx, userID)
	if err != nil {
		return 0, err
	}

	// set + TTL refresh
	_ = s.appCtx.RedisCache.Set(ctx, key, strconv.FormatInt(count, 10), time.Hour)

	return uint64(count), nil
}
