package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/readmylips/core/internal/db"
	apperrors "github.com/readmylips/core/internal/errors"
)

// ProfileRepository reads user profiles. The engine never writes them;
// signup and profile editing live outside this library.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get returns a single profile or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).First(&profile, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile %d: %w", userID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListActive returns all active profiles ordered by id. The order is the
// feed's determinism guarantee for a given snapshot.
func (r *ProfileRepository) ListActive(ctx context.Context) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&profiles).Error
	return profiles, err
}
