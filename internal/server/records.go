package server

import (
	"github.com/gin-gonic/gin"

	"github.com/gostpanel/console/internal/models"
)

// recordOperation appends to the operation log. Failures are logged, never
// returned to the caller.
func (s *Server) recordOperation(c *gin.Context, userID uint, username, action, resource string, resourceID uint, status, details string) {
	entry := models.OperationLog{
		UserID:     userID,
		Username:   username,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         c.ClientIP(),
		Status:     status,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to record operation")
	}
}

// siteFlag reads a boolean site setting. Missing means false.
func (s *Server) siteFlag(key string) bool {
	var row models.SiteConfig
	if err := s.db.Where(&models.SiteConfig{Key: key}).First(&row).Error; err != nil {
		return false
	}
	return row.Value == "true"
}
