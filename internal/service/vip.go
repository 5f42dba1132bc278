package service

import (
	"context"
	"fmt"
	"time"

	"UD_daily_rewards/internal/metrics"
	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
)

type VipService struct {
	store PlayerStore
	now   func() time.Time
}

func NewVipService(store PlayerStore, now func() time.Time) *VipService {
	if now == nil {
		now = time.Now
	}
	return &VipService{
		store: store,
		now:   now,
	}
}

// Grant activates VIP for duration. An unexpired pass is extended from its
// current expiry; a pass without expiry is left as is.
func (s *VipService) Grant(ctx context.Context, userID int64, duration time.Duration) (*model.VipStatus, error) {
	if duration <= 0 {
		return nil, ErrInvalidVipDuration
	}

	var granted model.VipStatus

	err := s.store.RunTransaction(ctx, func(tx repository.PlayerTx) error {
		now := s.now()

		account, _, err := tx.GetPlayer(ctx, userID)
		if err != nil {
			return corruptOr(err, "failed to read player")
		}
		if account == nil {
			account = model.NewUserAccount(userID, now)
			if err := tx.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		} else if err := account.Validate(); err != nil {
			return corruptOr(err, "invalid account")
		}

		current := account.Vip
		if current.ActiveAt(now) && current.ExpiresAt == nil {
			granted = current
			return nil
		}

		base := now
		if current.ActiveAt(now) {
			base = *current.ExpiresAt
		}
		expiresAt := base.Add(duration)
		granted = model.VipStatus{IsActive: true, ExpiresAt: &expiresAt}

		if err := tx.SetVip(ctx, userID, granted); err != nil {
			return fmt.Errorf("failed to set vip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VipGrants.Inc()
	return &granted, nil
}
