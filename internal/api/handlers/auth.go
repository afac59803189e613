package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"contextguard/internal/auth"
	"contextguard/internal/config"
	"contextguard/internal/email"
	"contextguard/internal/metrics"
	"contextguard/internal/models"
	"contextguard/internal/repository"
	"contextguard/internal/trust"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgPermanentBlock = "You've been blocked due to suspicious login activity. Please contact support for assistance."
	msgTemporaryBlock = "You've temporarily been blocked due to suspicious login activity. We have already sent a verification email to your registered email address. " +
		"Please follow the instructions in the email to verify your identity and gain access to your account. " +
		"Please note that repeated attempts to log in without verifying your identity will result in this device being permanently blocked from accessing your account."
	msgVerificationSent = "Access blocked due to suspicious activity. Verification email sent to your email address."
	msgContextError     = "Error occurred while verifying context data."
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	userRepo         repository.UserRepository
	preferenceRepo   repository.PreferenceRepository
	loginAttemptRepo repository.LoginAttemptRepository
	emailVerifyRepo  repository.EmailVerificationRepository
	baselineRepo     repository.TrustBaselineRepository
	auditRepo        repository.AuditLogRepository
	authService      *auth.Service
	engine           *trust.Engine
	dispatcher       *trust.Dispatcher
	emailService     email.EmailSender
	config           *config.Config
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(
	userRepo repository.UserRepository,
	preferenceRepo repository.PreferenceRepository,
	loginAttemptRepo repository.LoginAttemptRepository,
	emailVerifyRepo repository.EmailVerificationRepository,
	baselineRepo repository.TrustBaselineRepository,
	auditRepo repository.AuditLogRepository,
	authService *auth.Service,
	engine *trust.Engine,
	dispatcher *trust.Dispatcher,
	emailService email.EmailSender,
	config *config.Config,
) *AuthHandler {
	return &AuthHandler{
		userRepo:         userRepo,
		preferenceRepo:   preferenceRepo,
		loginAttemptRepo: loginAttemptRepo,
		emailVerifyRepo:  emailVerifyRepo,
		baselineRepo:     baselineRepo,
		auditRepo:        auditRepo,
		authService:      authService,
		engine:           engine,
		dispatcher:       dispatcher,
		emailService:     emailService,
		config:           config,
	}
}

// Register godoc
// @Summary Register new user
// @Description Register a new user account and send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "User registration details"
// @Success 201 {object} models.User "User created successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request format or validation error"
// @Failure 403 {object} models.ErrorResponse "Registration is disabled"
// @Failure 409 {object} models.ErrorResponse "Email already exists"
// @Failure 500 {object} models.ErrorResponse "Failed to create user"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if !h.config.Auth.RegistrationOpen {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "registration is disabled"})
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process registration"})
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: hashedPassword,
	}
	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create user"})
		return
	}

	// Context-based auth is opt-in; create the preference row up front
	if err := h.preferenceRepo.Upsert(c.Request.Context(), user.ID, false); err != nil {
		log.Printf("Failed to create preference for user %s: %v", user.ID, err)
	}

	verification, err := h.emailVerifyRepo.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create verification token"})
		return
	}

	if err := h.emailService.SendVerificationEmail(user.Email, user.Name, verification.Token); err != nil {
		// Log error but don't fail registration; verification can be resent
		log.Printf("Failed to send verification email to %s: %v", user.Email, err)
	}

	h.audit(c, &user.ID, models.AuditActionSignUp, "user", user.ID.String(),
		fmt.Sprintf("User %s registered", user.Email), "info", nil)

	c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary User login
// @Description Authenticate user, verify the login context and return access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.SuspiciousLoginResponse "Invalid credentials or verification required"
// @Failure 403 {object} models.ErrorResponse "Login context blocked"
// @Failure 429 {object} models.ErrorResponse "Too many failed login attempts"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ipAddress := c.ClientIP()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	// Check for too many recent failed attempts
	cutoff := time.Now().Add(-repository.LockoutDuration)
	recentFailures, err := h.loginAttemptRepo.GetRecentFailures(c.Request.Context(), user.ID, cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}
	if recentFailures >= repository.MaxLoginAttempts {
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many failed login attempts"})
		return
	}

	if err := h.authService.ComparePasswords(user.Password, req.Password); err != nil {
		if err := h.loginAttemptRepo.Create(c.Request.Context(), user.ID, false, ipAddress, time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
			return
		}
		if err := h.userRepo.IncrementFailedAttempts(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
			return
		}
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	// Credentials are good; run the context check before issuing anything
	if !h.contextCheckPassed(c, user) {
		return
	}

	if err := h.loginAttemptRepo.Create(c.Request.Context(), user.ID, true, ipAddress, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}
	if err := h.userRepo.ResetFailedAttempts(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}
	if err := h.loginAttemptRepo.ClearAttempts(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}
	if err := h.userRepo.UpdateLastLogin(c.Request.Context(), user.ID, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update login time"})
		return
	}

	h.audit(c, &user.ID, models.AuditActionSignIn, "user", user.ID.String(),
		fmt.Sprintf("User %s logged in successfully", user.Email), "info",
		map[string]interface{}{"email": user.Email})

	accessToken, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate access token"})
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// contextCheckPassed runs the trust engine when the user has context-based
// auth enabled and writes the deny response itself when the context is not
// trusted. It returns true when the login flow may continue to token
// issuance. Any engine fault denies the sign-in; it never admits silently.
func (h *AuthHandler) contextCheckPassed(c *gin.Context, user *models.User) bool {
	pref, err := h.preferenceRepo.GetByUserID(c.Request.Context(), user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return true
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgContextError})
		return false
	}
	if !pref.EnableContextBasedAuth {
		return true
	}

	current := fingerprintFromRequest(c)
	outcome := h.engine.Decide(c.Request.Context(), user, current)

	switch outcome.Kind {
	case trust.KindMatch:
		return true

	case trust.KindBlocked:
		h.audit(c, &user.ID, models.AuditActionContextBlocked, "suspicious_login", entityID(outcome),
			"Sign-in denied: login context is blocked", "warn", nil)
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: msgPermanentBlock})
		return false

	case trust.KindSuspicious:
		h.audit(c, &user.ID, models.AuditActionContextMismatch, "suspicious_login", entityID(outcome),
			"Repeated sign-in attempt from unverified login context", "warn",
			map[string]interface{}{"unverified_attempts": outcome.Record.UnverifiedAttempts})
		// The mismatch that created the record already carried the email;
		// re-dispatch only on the first unverified repeat.
		if outcome.Record.UnverifiedAttempts == 1 {
			h.dispatchVerification(c, user, outcome)
		}
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: msgTemporaryBlock})
		return false

	case trust.KindMismatch:
		h.audit(c, &user.ID, models.AuditActionContextMismatch, "suspicious_login", entityID(outcome),
			"Sign-in from new login context, verification required", "warn",
			map[string]interface{}{"mismatched_fields": outcome.MismatchedFields})
		if !h.dispatchVerification(c, user, outcome) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Something went wrong"})
			return false
		}
		c.JSON(http.StatusUnauthorized, models.SuspiciousLoginResponse{
			Message:          msgVerificationSent,
			MismatchedFields: outcome.MismatchedFields,
		})
		return false

	default: // trust.KindNoBaseline, trust.KindError
		if outcome.Err != nil {
			log.Printf("Context verification failed for user %s: %v", user.ID, outcome.Err)
		}
		h.audit(c, &user.ID, models.AuditActionContextMismatch, "user", user.ID.String(),
			"Context verification error, sign-in denied", "error", nil)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgContextError})
		return false
	}
}

// dispatchVerification hands the approve/block notification to the email
// collaborator. Reports whether the hand-off succeeded.
func (h *AuthHandler) dispatchVerification(c *gin.Context, user *models.User, outcome trust.Outcome) bool {
	notification := h.dispatcher.Build(outcome.Record)
	if err := h.emailService.SendLoginVerificationEmail(
		notification.Email, user.Name, notification.ApproveLink, notification.BlockLink,
	); err != nil {
		log.Printf("Failed to send login verification email to %s: %v", notification.Email, err)
		return false
	}
	metrics.NotificationsDispatched.Inc()
	return true
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a valid refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.TokenRefreshRequest true "Refresh token"
// @Success 200 {object} models.LoginResponse "New token pair"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	userID, err := h.authService.ValidateRefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user not found"})
		return
	}

	// Rotate: the presented token is consumed regardless of what follows
	if err := h.authService.DeleteRefreshToken(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to rotate refresh token"})
		return
	}

	accessToken, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate access token"})
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// VerifyEmail godoc
// @Summary Verify email address
// @Description Verify a user's email address and establish the initial trusted login context
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} models.SuccessResponse "Email verified"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "verification token is required"})
		return
	}

	userID, err := h.emailVerifyRepo.Verify(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenInvalid):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid verification token"})
		case errors.Is(err, repository.ErrTokenExpired):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "verification token expired"})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to verify email"})
		}
		return
	}

	// The verifying request establishes the user's first trusted context
	if err := h.baselineRepo.Upsert(c.Request.Context(), userID, fingerprintFromRequest(c)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to establish trusted context"})
		return
	}

	h.audit(c, &userID, models.AuditActionEmailVerified, "user", userID.String(),
		"Email verified, trusted context established", "info", nil)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Email verified successfully."})
}

// ResendVerification godoc
// @Summary Resend verification email
// @Description Send a new verification email to an unverified user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResendVerificationRequest true "User email"
// @Success 200 {object} models.SuccessResponse "Verification email sent"
// @Failure 400 {object} models.ErrorResponse "Invalid request format or email already verified"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email is already verified"})
		return
	}

	verification, err := h.emailVerifyRepo.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create verification token"})
		return
	}

	if err := h.emailService.SendVerificationEmail(user.Email, user.Name, verification.Token); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Verification email sent."})
}

// audit writes an audit log row; failures are logged and never fail the request.
func (h *AuthHandler) audit(c *gin.Context, userID *uuid.UUID, action models.AuditAction, entityType, entityID, description, level string, metadata map[string]interface{}) {
	var encoded string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			encoded = string(b)
		}
	}

	entry := &models.CreateAuditLogRequest{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Metadata:    encoded,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		Level:       level,
	}
	if err := h.auditRepo.Create(c.Request.Context(), entry); err != nil {
		log.Printf("Failed to create audit log: %v", err)
	}
}

func entityID(outcome trust.Outcome) string {
	if outcome.Record != nil {
		return outcome.Record.ID.String()
	}
	return ""
}
