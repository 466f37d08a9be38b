package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gostpanel/console/internal/auth"
	"github.com/gostpanel/console/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries either a session or a second-factor challenge
type LoginResponse struct {
	Token       string       `json:"token,omitempty"`
	User        *models.User `json:"user,omitempty"`
	Requires2FA bool         `json:"requires_2fa,omitempty"`
	TempToken   string       `json:"temp_token,omitempty"`
}

// TwoFactorVerifyRequest completes a challenged login
type TwoFactorVerifyRequest struct {
	TempToken string `json:"temp_token" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFactorCodeRequest carries a TOTP code for enable/disable
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFactorSetupResponse is the provisioning data for an authenticator app
type TwoFactorSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// bind decodes and validates the JSON body, answering 400 on failure.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return false
	}
	return true
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bind(c, &req) {
		return
	}

	// Find user by username or email
	var user models.User
	name := strings.TrimSpace(req.Username)
	if err := s.db.Where("username = ? OR (email <> '' AND email = ?)", name, name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.login("password", loginFailure)
			s.recordOperation(c, 0, name, "login", "user", 0, "failed", "unknown user")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	// Verify password
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.metrics.login("password", loginFailure)
		s.recordOperation(c, user.ID, user.Username, "login", "user", user.ID, "failed", "wrong password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if s.siteFlag(models.EmailVerificationEnabled) && user.Email != "" && !user.EmailVerified {
		s.metrics.login("password", loginFailure)
		c.JSON(http.StatusForbidden, gin.H{"error": "Email address not verified"})
		return
	}

	if user.TwoFactorEnabled {
		challenge := models.TwoFactorChallenge{
			UserID:    user.ID,
			ExpiresAt: s.now().Add(s.config.Auth.ChallengeTTL),
		}
		if err := s.db.Create(&challenge).Error; err != nil {
			s.internalError(c, err, "Failed to create two-factor challenge")
			return
		}
		s.metrics.login("password", loginTwoFactor)
		s.logger.Info().Uint("user_id", user.ID).Msg("Two-factor challenge issued")
		c.JSON(http.StatusOK, LoginResponse{Requires2FA: true, TempToken: challenge.ID})
		return
	}

	s.completeLogin(c, &user, "password")
}

func (s *Server) verifyTwoFactor(c *gin.Context) {
	var req TwoFactorVerifyRequest
	if !s.bind(c, &req) {
		return
	}

	var challenge models.TwoFactorChallenge
	if err := s.db.Where("id = ?", req.TempToken).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.login("totp", loginFailure)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired login attempt"})
			return
		}
		s.internalError(c, err, "Failed to find two-factor challenge")
		return
	}

	if s.now().After(challenge.ExpiresAt) {
		s.db.Delete(&challenge)
		s.metrics.login("totp", loginFailure)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired login attempt"})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, challenge.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to find challenged user")
		return
	}

	// A wrong code keeps the challenge so the user can retry until it expires.
	if !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		s.metrics.login("totp", loginFailure)
		s.recordOperation(c, user.ID, user.Username, "login", "user", user.ID, "failed", "invalid two-factor code")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid two-factor code"})
		return
	}

	if err := s.db.Delete(&challenge).Error; err != nil {
		s.internalError(c, err, "Failed to consume two-factor challenge")
		return
	}

	s.completeLogin(c, &user, "totp")
}

// completeLogin issues the session token and records the login.
func (s *Server) completeLogin(c *gin.Context, user *models.User, step string) {
	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	now := s.now()
	user.LastLogin = &now
	user.LastLoginIP = c.ClientIP()
	if err := s.db.Model(user).Updates(map[string]any{
		"last_login":    user.LastLogin,
		"last_login_ip": user.LastLoginIP,
	}).Error; err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to record last login")
	}

	s.metrics.login(step, loginSuccess)
	s.recordOperation(c, user.ID, user.Username, "login", "user", user.ID, "success", "")
	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}

// currentUser loads the session's user, answering on failure.
func (s *Server) currentUser(c *gin.Context) (*models.User, bool) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to find user")
		return nil, false
	}
	return &user, true
}

func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !s.bind(c, &req) {
		return
	}
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	if err := auth.VerifyPassword(req.OldPassword, user.PasswordHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}
	if err := s.db.Model(user).Updates(map[string]any{
		"password_hash":    hash,
		"password_changed": true,
	}).Error; err != nil {
		s.internalError(c, err, "Failed to update password")
		return
	}

	s.recordOperation(c, user.ID, user.Username, "change_password", "user", user.ID, "success", "")
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func (s *Server) setupTwoFactor(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	if user.TwoFactorEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Two-factor authentication is already enabled"})
		return
	}

	secret, url, err := auth.GenerateTOTPSecret(user.Username)
	if err != nil {
		s.internalError(c, err, "Failed to generate TOTP secret")
		return
	}
	if err := s.db.Model(user).Update("two_factor_secret", secret).Error; err != nil {
		s.internalError(c, err, "Failed to store TOTP secret")
		return
	}

	c.JSON(http.StatusOK, TwoFactorSetupResponse{Secret: secret, URL: url})
}

func (s *Server) enableTwoFactor(c *gin.Context) {
	s.toggleTwoFactor(c, true)
}

func (s *Server) disableTwoFactor(c *gin.Context) {
	s.toggleTwoFactor(c, false)
}

func (s *Server) toggleTwoFactor(c *gin.Context, enable bool) {
	var req TwoFactorCodeRequest
	if !s.bind(c, &req) {
		return
	}
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	if user.TwoFactorSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Run two-factor setup first"})
		return
	}
	if !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid two-factor code"})
		return
	}

	updates := map[string]any{"two_factor_enabled": enable}
	if !enable {
		updates["two_factor_secret"] = ""
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		s.internalError(c, err, "Failed to update two-factor state")
		return
	}

	action, message := "enable_2fa", "Two-factor authentication enabled"
	if !enable {
		action, message = "disable_2fa", "Two-factor authentication disabled"
	}
	s.recordOperation(c, user.ID, user.Username, action, "user", user.ID, "success", "")
	c.JSON(http.StatusOK, gin.H{"message": message})
}
