package mocks

import (
	"context"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockPlayerStore runs the transaction body once against Tx unless the
// expectation returns an error.
type MockPlayerStore struct {
	mock.Mock
	Tx *MockPlayerTx
}

func (m *MockPlayerStore) RunTransaction(ctx context.Context, fn func(tx repository.PlayerTx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

type MockPlayerTx struct {
	mock.Mock
}

func (m *MockPlayerTx) GetPlayer(ctx context.Context, userID int64) (*model.UserAccount, *model.DailyMission, error) {
	args := m.Called(ctx, userID)
	var account *model.UserAccount
	if a := args.Get(0); a != nil {
		account = a.(*model.UserAccount)
	}
	var mission *model.DailyMission
	if ms := args.Get(1); ms != nil {
		mission = ms.(*model.DailyMission)
	}
	return account, mission, args.Error(2)
}

func (m *MockPlayerTx) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockPlayerTx) IncrementEconomy(ctx context.Context, userID int64, coins, gems int64) error {
	args := m.Called(ctx, userID, coins, gems)
	return args.Error(0)
}

func (m *MockPlayerTx) SaveDailyMission(ctx context.Context, mission *model.DailyMission) error {
	args := m.Called(ctx, mission)
	return args.Error(0)
}

func (m *MockPlayerTx) SetVip(ctx context.Context, userID int64, vip model.VipStatus) error {
	args := m.Called(ctx, userID, vip)
	return args.Error(0)
}
