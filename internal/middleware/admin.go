package middleware

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// AdminOnlyMiddleware checks the account's role from the database on each request,
// never from the token, so a demoted admin loses access immediately
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := AccountID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
			return
		}
		var acc domain.Account
		if err := db.WithContext(c.Request.Context()).Select("id", "role").First(&acc, accountID).Error; err != nil || !acc.IsAdmin() {
			logrus.WithFields(logrus.Fields{"account_id": accountID, "path": c.FullPath()}).Warn("Admin access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "unauthorized"})
			return
		}
		c.Set("isAdmin", true)
		c.Next()
	}
}
