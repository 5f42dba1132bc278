package service

import (
	"context"
	"time"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
)

type Service struct {
	*DailyLoginService
	*PlayerService
	*VipService
}

func NewService(dailyLoginService *DailyLoginService, playerService *PlayerService, vipService *VipService) *Service {
	return &Service{
		DailyLoginService: dailyLoginService,
		PlayerService:     playerService,
		VipService:        vipService,
	}
}

// PlayerStore runs fn as one atomic transaction over player documents,
// re-running it on write conflicts.
type PlayerStore interface {
	RunTransaction(ctx context.Context, fn func(tx repository.PlayerTx) error) error
}

type DailyLoginServiceI interface {
	Claim(ctx context.Context, req *model.ClaimRequest) (model.Reward, error)
	Status(ctx context.Context, userID int64) (*model.DailyLoginStatus, error)
}

type PlayerServiceI interface {
	GetAccount(ctx context.Context, userID int64) (*model.UserAccount, error)
}

type VipServiceI interface {
	Grant(ctx context.Context, userID int64, duration time.Duration) (*model.VipStatus, error)
}
