package middleware

import (
	"net/http"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"
	"UD_daily_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Caller turns the verified Telegram user into the authenticated caller
// of the request. It must run after auth.TelegramAuthMiddleware.
func Caller() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.UserFromContext(c)
		if !ok || telegramUser.ID == 0 {
			log.Info("request without telegram user", zap.String("request_id", RequestIDFrom(c)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    string(service.ErrUnauthenticated.Kind),
					"message": service.ErrUnauthenticated.Message,
				},
			})
			return
		}

		c.Set(callerKey, &model.Caller{
			UserID:   telegramUser.ID,
			Username: telegramUser.Username,
		})
		c.Next()
	}
}

// CallerFrom returns the caller set by Caller, or nil.
func CallerFrom(c *gin.Context) *model.Caller {
	v, exists := c.Get(callerKey)
	if !exists {
		return nil
	}
	caller, _ := v.(*model.Caller)
	return caller
}
