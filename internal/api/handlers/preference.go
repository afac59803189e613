package handlers

import (
	"errors"
	"net/http"

	"contextguard/internal/auth"
	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/gin-gonic/gin"
)

// PreferenceHandler handles per-user settings for context-based authentication
type PreferenceHandler struct {
	preferenceRepo repository.PreferenceRepository
}

func NewPreferenceHandler(preferenceRepo repository.PreferenceRepository) *PreferenceHandler {
	return &PreferenceHandler{preferenceRepo: preferenceRepo}
}

// GetPreference godoc
// @Summary Get authentication preferences
// @Description Get the authenticated user's context-based authentication preference
// @Tags preferences
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Preference
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /preferences [get]
func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	pref, err := h.preferenceRepo.GetByUserID(c.Request.Context(), user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		// No row yet means the default: context-based auth off
		c.JSON(http.StatusOK, models.Preference{
			UserID:                 user.ID,
			EnableContextBasedAuth: false,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get preferences"})
		return
	}

	c.JSON(http.StatusOK, pref)
}

// UpdatePreference godoc
// @Summary Update authentication preferences
// @Description Enable or disable context-based authentication for the authenticated user
// @Tags preferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdatePreferenceRequest true "Preference update"
// @Success 200 {object} models.Preference
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /preferences [put]
func (h *PreferenceHandler) UpdatePreference(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.preferenceRepo.Upsert(c.Request.Context(), user.ID, *req.EnableContextBasedAuth); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update preferences"})
		return
	}

	c.JSON(http.StatusOK, models.Preference{
		UserID:                 user.ID,
		EnableContextBasedAuth: *req.EnableContextBasedAuth,
	})
}
