package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gostpanel/console/internal/auth"
	"github.com/gostpanel/console/internal/models"
)

// emailTokenTTL bounds verification and reset tokens.
const emailTokenTTL = 24 * time.Hour

// RegisterRequest represents a self-registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// EmailTokenRequest carries a mailed token
type EmailTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ForgotPasswordRequest names the account to reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password with a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (s *Server) register(c *gin.Context) {
	if !s.siteFlag(models.RegistrationEnabled) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Registration is disabled"})
		return
	}

	var req RegisterRequest
	if !s.bind(c, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to check existing users")
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already registered"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	verify := s.siteFlag(models.EmailVerificationEnabled)
	user := &models.User{
		Username:        req.Username,
		Email:           req.Email,
		PasswordHash:    passwordHash,
		Role:            models.RoleUser,
		PasswordChanged: true,
		EmailVerified:   !verify,
	}
	if err := s.db.Create(user).Error; err != nil {
		s.internalError(c, err, "Failed to create user")
		return
	}
	s.recordOperation(c, user.ID, user.Username, "register", "user", user.ID, "success", "")

	if !verify {
		c.JSON(http.StatusCreated, gin.H{"message": "Account created. You can log in now."})
		return
	}

	if err := s.mailToken(user, models.PurposeVerifyEmail); err != nil {
		s.internalError(c, err, "Failed to create verification token")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Account created. Check your mail to verify the address."})
}

func (s *Server) verifyEmail(c *gin.Context) {
	var req EmailTokenRequest
	if !s.bind(c, &req) {
		return
	}

	token, ok := s.consumeToken(c, req.Token, models.PurposeVerifyEmail)
	if !ok {
		return
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", token.UserID).
		Update("email_verified", true).Error; err != nil {
		s.internalError(c, err, "Failed to verify email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified. You can log in now."})
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	// The answer is the same whether or not the address is known.
	const message = "If the address is registered, a reset mail is on its way."

	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusOK, gin.H{"message": message})
		return
	case err != nil:
		s.internalError(c, err, "Failed to find user")
		return
	}

	if err := s.mailToken(&user, models.PurposeResetPassword); err != nil {
		s.internalError(c, err, "Failed to create reset token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	token, ok := s.consumeToken(c, req.Token, models.PurposeResetPassword)
	if !ok {
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", token.UserID).Updates(map[string]any{
			"password_hash":    passwordHash,
			"password_changed": true,
		}).Error; err != nil {
			return err
		}
		// Older reset mails for the account stop working.
		return tx.Where("user_id = ? AND purpose = ?", token.UserID, models.PurposeResetPassword).
			Delete(&models.EmailToken{}).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	s.recordOperation(c, token.UserID, "", "reset_password", "user", token.UserID, "success", "")
	c.JSON(http.StatusOK, gin.H{"message": "Password reset. You can log in now."})
}

// mailToken creates a one-time token for user. The dev panel has no mailer,
// so the token is logged instead of sent.
func (s *Server) mailToken(user *models.User, purpose string) error {
	token := models.EmailToken{
		UserID:    user.ID,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(emailTokenTTL),
	}
	if err := s.db.Create(&token).Error; err != nil {
		return err
	}

	s.logger.Info().
		Uint("user_id", user.ID).
		Str("email", user.Email).
		Str("purpose", purpose).
		Str("token", token.Token).
		Msg("Mail token issued")
	return nil
}

// consumeToken loads and deletes a mailed token, answering 400 when it is
// unknown, expired or meant for something else.
func (s *Server) consumeToken(c *gin.Context, value, purpose string) (*models.EmailToken, bool) {
	var token models.EmailToken
	err := s.db.Where("token = ? AND purpose = ?", value, purpose).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return nil, false
	}
	if err != nil {
		s.internalError(c, err, "Failed to find token")
		return nil, false
	}

	if err := s.db.Delete(&token).Error; err != nil {
		s.internalError(c, err, "Failed to consume token")
		return nil, false
	}
	if s.now().After(token.ExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return nil, false
	}
	return &token, true
}
