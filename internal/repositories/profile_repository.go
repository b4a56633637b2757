package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"couple-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository abstracts profile persistence.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID int) (models.Profile, error)
	ListProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetProfile fetches a single profile.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT user_id, display_name, avatar_key, highlight_words, updated_at FROM profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// ListProfiles fetches the profiles that exist for userIDs.
func (r *ProfileRepo) ListProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return []models.Profile{}, nil
	}
	ids := make(pq.Int64Array, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, int64(id))
	}
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT user_id, display_name, avatar_key, highlight_words, updated_at FROM profiles WHERE user_id = ANY($1)`, ids)
	return profiles, err
}

// UpsertProfile creates or replaces the caller's profile.
func (r *ProfileRepo) UpsertProfile(ctx context.Context, in models.Profile) (models.Profile, error) {
	words := in.HighlightWords
	if words == nil {
		words = pq.StringArray{}
	}
	var p models.Profile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO profiles (user_id, display_name, avatar_key, highlight_words, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name, avatar_key = EXCLUDED.avatar_key,
            highlight_words = EXCLUDED.highlight_words, updated_at = NOW()
        RETURNING user_id, display_name, avatar_key, highlight_words, updated_at`,
		in.UserID, in.DisplayName, in.AvatarKey, words).
		StructScan(&p)
	return p, err
}
