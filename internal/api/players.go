package api

import (
	"net/http"
	"time"

	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
)

type playerRoutes struct {
	ps service.PlayerServiceI
}

func NewPlayerRoutes(handler *gin.RouterGroup, ps service.PlayerServiceI, a *auth.TelegramAuth) {
	r := &playerRoutes{ps: ps}
	h := handler.Group("/players")
	h.Use(a.TelegramAuthMiddleware(), middleware.Caller())
	{
		h.GET("/me", r.GetMe)
	}
}

type EconomyResponse struct {
	Coins int64 `json:"coins"`
	Gems  int64 `json:"gems"`
}

type VipResponse struct {
	IsActive  bool       `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type PlayerResponse struct {
	UserID    int64           `json:"userId"`
	Username  string          `json:"username,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Economy   EconomyResponse `json:"economy"`
	Vip       VipResponse     `json:"vip"`
}

func (r *playerRoutes) GetMe(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if caller == nil {
		writeError(c, service.ErrUnauthenticated)
		return
	}

	account, err := r.ps.GetAccount(c.Request.Context(), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PlayerResponse{
		UserID:    account.UserID,
		Username:  caller.Username,
		CreatedAt: account.CreatedAt,
		Economy: EconomyResponse{
			Coins: account.Economy.Coins,
			Gems:  account.Economy.Gems,
		},
		Vip: VipResponse{
			IsActive:  account.Vip.IsActive,
			ExpiresAt: account.Vip.ExpiresAt,
		},
	})
}
