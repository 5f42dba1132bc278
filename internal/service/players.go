package service

import (
	"context"
	"fmt"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
)

type PlayerService struct {
	store PlayerStore
}

func NewPlayerService(store PlayerStore) *PlayerService {
	return &PlayerService{
		store: store,
	}
}

func (s *PlayerService) GetAccount(ctx context.Context, userID int64) (*model.UserAccount, error) {
	var account *model.UserAccount

	err := s.store.RunTransaction(ctx, func(tx repository.PlayerTx) error {
		a, _, err := tx.GetPlayer(ctx, userID)
		if err != nil {
			return corruptOr(err, "failed to read player")
		}
		if a == nil {
			return ErrPlayerNotFound
		}
		if err := a.Validate(); err != nil {
			return corruptOr(err, "invalid account")
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}
