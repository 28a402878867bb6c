package middleware

import (
	"fmt"
	"quiz_backend/internal/config"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware admits the listed roles; admins are always admitted.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		allowed := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserStore interface {
	EnsureUser(user *model.User) error
}

// UserSyncMiddleware mirrors the token's user into the users table the first
// time the process sees it, so reviews can show usernames.
func UserSyncMiddleware(store UserStore) gin.HandlerFunc {
	var seen sync.Map
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			if _, ok := seen.Load(claims.UserID); !ok {
				username := claims.Subject
				if username == "" {
					username = fmt.Sprintf("user-%d", claims.UserID)
				}
				user := &model.User{
					BaseModel: model.BaseModel{ID: claims.UserID},
					Username:  username,
					Email:     claims.Email,
					Role:      claims.Role,
				}
				if err := store.EnsureUser(user); err != nil {
					logger.Log.Warn("Failed to sync user", zap.Uint("user_id", claims.UserID), zap.Error(err))
				} else {
					seen.Store(claims.UserID, true)
				}
			}
		}
		c.Next()
	}
}
