package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"UD_daily_rewards/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"
)

const (
	expTime = 24 * time.Hour

	authScheme = "Telegram "

	// TelegramUserKey holds the *TelegramUserData of a verified request.
	TelegramUserKey = "telegram_user"
)

var ErrMissingUser = errors.New("init data carries no user")

type TelegramAuth struct {
	botToken  string
	debugMode bool
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
	}
}

// TelegramAuthMiddleware verifies Mini App init data from the Authorization
// header. Signature checks are skipped in debug mode.
func (t *TelegramAuth) TelegramAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			abortUnauthenticated(c, "authorization header is required")
			return
		}

		if !strings.HasPrefix(authHeader, authScheme) {
			log.Info("invalid authorization header format")
			abortUnauthenticated(c, "invalid authorization format")
			return
		}

		initData := strings.TrimPrefix(authHeader, authScheme)
		if !t.debugMode {
			if err := initdata.Validate(initData, t.botToken, expTime); err != nil {
				log.Info("invalid telegram init data", zap.Error(err))
				abortUnauthenticated(c, "invalid telegram auth data")
				return
			}
		}

		telegramUserData, err := ExtractTelegramData(initData)
		if err != nil {
			log.Info("failed to extract telegram data", zap.Error(err))
			abortUnauthenticated(c, "invalid telegram data")
			return
		}

		c.Set(TelegramUserKey, telegramUserData)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "unauthenticated", "message": message},
	})
}

func (t *TelegramAuth) GetBotToken() string {
	return t.botToken
}

type TelegramUserData struct {
	ID       int64
	Username string
	AuthDate time.Time
}

func ExtractTelegramData(initData string) (*TelegramUserData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	authDateUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, err
	}

	var userData struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	if err := json.Unmarshal([]byte(values.Get("user")), &userData); err != nil {
		return nil, err
	}
	if userData.ID == 0 {
		return nil, ErrMissingUser
	}

	return &TelegramUserData{
		ID:       userData.ID,
		Username: userData.Username,
		AuthDate: time.Unix(authDateUnix, 0),
	}, nil
}

// UserFromContext returns the verified Telegram user, if any.
func UserFromContext(c *gin.Context) (*TelegramUserData, bool) {
	v, exists := c.Get(TelegramUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*TelegramUserData)
	return user, ok
}
