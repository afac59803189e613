package handlers

import (
	"errors"
	"log"
	"net/http"

	"contextguard/internal/metrics"
	"contextguard/internal/models"
	"contextguard/internal/repository"
	"contextguard/internal/trust"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VerifyHandler handles the approve/block links from login verification emails.
// Both endpoints are unauthenticated GETs so they work from any mail client;
// the record id plus email pair is the credential.
type VerifyHandler struct {
	verifier  *trust.Verifier
	auditRepo repository.AuditLogRepository
}

func NewVerifyHandler(verifier *trust.Verifier, auditRepo repository.AuditLogRepository) *VerifyHandler {
	return &VerifyHandler{
		verifier:  verifier,
		auditRepo: auditRepo,
	}
}

// VerifyLogin godoc
// @Summary Approve a suspicious login context
// @Description Mark the suspicious login context as trusted and promote it to the user's baseline
// @Tags auth
// @Produce json
// @Param id query string true "Suspicious login record ID"
// @Param email query string true "Account email address"
// @Success 200 {object} models.SuccessResponse "Login context approved"
// @Failure 400 {object} models.ErrorResponse "Invalid verification link"
// @Failure 404 {object} models.ErrorResponse "Verification link expired or already used"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify/login [get]
func (h *VerifyHandler) VerifyLogin(c *gin.Context) {
	rec, ok := h.resolve(c, "approve")
	if !ok {
		return
	}

	h.audit(c, rec, models.AuditActionContextApproved, "Login context approved and promoted to trusted baseline")
	metrics.VerificationCallbacks.WithLabelValues("approve", "ok").Inc()
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Login verified. You can now sign in from this device."})
}

// BlockLogin godoc
// @Summary Block a suspicious login context
// @Description Permanently block the suspicious login context
// @Tags auth
// @Produce json
// @Param id query string true "Suspicious login record ID"
// @Param email query string true "Account email address"
// @Success 200 {object} models.SuccessResponse "Login context blocked"
// @Failure 400 {object} models.ErrorResponse "Invalid verification link"
// @Failure 404 {object} models.ErrorResponse "Verification link expired or already used"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify/block [get]
func (h *VerifyHandler) BlockLogin(c *gin.Context) {
	rec, ok := h.resolve(c, "block")
	if !ok {
		return
	}

	h.audit(c, rec, models.AuditActionContextBlocked, "Login context permanently blocked by account owner")
	metrics.VerificationCallbacks.WithLabelValues("block", "ok").Inc()
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Login blocked. This device can no longer access your account."})
}

// resolve parses the callback parameters and runs the requested action. It
// writes the error response itself when the callback cannot proceed.
func (h *VerifyHandler) resolve(c *gin.Context, action string) (*models.SuspiciousLogin, bool) {
	id, err := uuid.Parse(c.Query("id"))
	if err != nil || c.Query("email") == "" {
		metrics.VerificationCallbacks.WithLabelValues(action, "invalid").Inc()
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid verification link"})
		return nil, false
	}
	email := c.Query("email")

	var rec *models.SuspiciousLogin
	if action == "approve" {
		rec, err = h.verifier.Approve(c.Request.Context(), id, email)
	} else {
		rec, err = h.verifier.Block(c.Request.Context(), id, email)
	}

	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, trust.ErrTampered):
		metrics.VerificationCallbacks.WithLabelValues(action, "invalid").Inc()
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid verification link"})
	case errors.Is(err, trust.ErrRecordNotFound):
		metrics.VerificationCallbacks.WithLabelValues(action, "not_found").Inc()
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "verification link has expired or was already used"})
	default:
		metrics.VerificationCallbacks.WithLabelValues(action, "error").Inc()
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process verification"})
	}
	return nil, false
}

func (h *VerifyHandler) audit(c *gin.Context, rec *models.SuspiciousLogin, action models.AuditAction, description string) {
	entry := &models.CreateAuditLogRequest{
		UserID:      &rec.UserID,
		Action:      action,
		EntityType:  "suspicious_login",
		EntityID:    rec.ID.String(),
		Description: description,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		Level:       "info",
	}
	if err := h.auditRepo.Create(c.Request.Context(), entry); err != nil {
		// Audit failures never fail the callback
		log.Printf("Failed to create audit log: %v", err)
	}
}
