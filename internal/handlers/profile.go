package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"couple-service/internal/models"
	"couple-service/internal/repositories"
)

const maxHighlightWords = 32

// ProfileHandler serves the caller's profile and settings.
type ProfileHandler struct {
	profileRepo repositories.ProfileRepository
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profileRepo repositories.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo}
}

// GetProfile returns the stored profile, or defaults when none was saved yet.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.GetInt("userID")
	profile, err := h.profileRepo.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
		profile = models.Profile{UserID: userID, HighlightWords: pq.StringArray{}}
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile replaces the caller's profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		DisplayName    string   `json:"display_name" binding:"max=64"`
		AvatarKey      string   `json:"avatar_key"`
		HighlightWords []string `json:"highlight_words"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	words := normalizeWords(req.HighlightWords)
	if len(words) > maxHighlightWords {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many highlight words"})
		return
	}

	profile, err := h.profileRepo.UpsertProfile(c.Request.Context(), models.Profile{
		UserID:         c.GetInt("userID"),
		DisplayName:    strings.TrimSpace(req.DisplayName),
		AvatarKey:      req.AvatarKey,
		HighlightWords: pq.StringArray(words),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// normalizeWords trims, drops blanks and removes case-insensitive duplicates.
func normalizeWords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}
