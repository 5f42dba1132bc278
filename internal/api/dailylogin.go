package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"
	"UD_daily_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

var errInvalidBody = &service.Error{Kind: service.KindInvalidArgument, Message: "invalid request body"}

type dailyLoginRoutes struct {
	ds service.DailyLoginServiceI
}

func NewDailyLoginRoutes(handler *gin.RouterGroup, ds service.DailyLoginServiceI, a *auth.TelegramAuth) {
	r := &dailyLoginRoutes{ds: ds}
	h := handler.Group("/daily-login")
	h.Use(a.TelegramAuthMiddleware(), middleware.Caller())
	{
		h.GET("", r.GetDailyLoginStatus)
		h.POST("/claim", r.ClaimDailyLogin)
	}
}

type ClaimDailyLoginRequest struct {
	Variant string `json:"variant"`
}

// ClaimDailyLogin grants today's normal or VIP reward. The body is
// optional; without it the normal variant is claimed.
func (r *dailyLoginRoutes) ClaimDailyLogin(c *gin.Context) {
	log := logger.Logger()

	var body ClaimDailyLoginRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			log.Info("failed to bind claim request", zap.Error(err))
			writeError(c, errInvalidBody)
			return
		}
	}

	req, err := service.ValidateClaimRequest(middleware.CallerFrom(c), body.Variant)
	if err != nil {
		writeError(c, err)
		return
	}

	reward, err := r.ds.Claim(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Info("daily login reward granted",
		zap.Int64("telegram_id", req.UserID),
		zap.String("variant", string(req.Variant)),
		zap.Int64("coins", reward.Coins),
		zap.Int64("gems", reward.Gems))

	c.JSON(http.StatusOK, service.FormatClaimResponse(reward))
}

type RewardsResponse struct {
	Normal model.Reward `json:"normal"`
	Vip    model.Reward `json:"vip"`
}

type DailyLoginStatusResponse struct {
	DayKey        string          `json:"dayKey"`
	Completed     bool            `json:"completed"`
	ClaimedNormal bool            `json:"claimedNormal"`
	ClaimedVip    bool            `json:"claimedVip"`
	VipActive     bool            `json:"vipActive"`
	NextResetAt   time.Time       `json:"nextResetAt"`
	Rewards       RewardsResponse `json:"rewards"`
}

func (r *dailyLoginRoutes) GetDailyLoginStatus(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if caller == nil {
		writeError(c, service.ErrUnauthenticated)
		return
	}

	status, err := r.ds.Status(c.Request.Context(), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DailyLoginStatusResponse{
		DayKey:        status.DayKey,
		Completed:     status.Today.Completed,
		ClaimedNormal: status.Today.ClaimedNormal,
		ClaimedVip:    status.Today.ClaimedVip,
		VipActive:     status.VipActive,
		NextResetAt:   status.NextResetAt,
		Rewards: RewardsResponse{
			Normal: status.Rewards.Normal,
			Vip:    status.Rewards.Vip,
		},
	})
}
