package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestStore_CreateThenIncrementInOneTransaction(t *testing.T) {
	store := New(3)

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		account, mission, err := tx.GetPlayer(context.Background(), 1)
		require.NoError(t, err)
		assert.Nil(t, account)
		assert.Nil(t, mission)

		require.NoError(t, tx.CreateAccount(context.Background(), model.NewUserAccount(1, now)))
		return tx.IncrementEconomy(context.Background(), 1, 100, 5)
	})
	require.NoError(t, err)

	account := store.Account(1)
	require.NotNil(t, account)
	assert.Equal(t, model.Economy{Coins: 100, Gems: 5}, account.Economy)
	assert.Equal(t, now, account.CreatedAt)
}

func TestStore_CreateAccountKeepsExisting(t *testing.T) {
	store := New(3)
	store.PutAccount(&model.UserAccount{UserID: 1, Economy: model.Economy{Coins: 40}})

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		return tx.CreateAccount(context.Background(), model.NewUserAccount(1, now))
	})
	require.NoError(t, err)

	assert.Equal(t, int64(40), store.Account(1).Economy.Coins)
}

func TestStore_BodyErrorDiscardsWrites(t *testing.T) {
	store := New(3)
	errBody := errors.New("refused")

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		require.NoError(t, tx.CreateAccount(context.Background(), model.NewUserAccount(1, now)))
		return errBody
	})

	assert.ErrorIs(t, err, errBody)
	assert.Nil(t, store.Account(1))
}

func TestStore_FailingWriteLeavesNoPartialEffect(t *testing.T) {
	store := New(3)

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		mission := model.NewDailyMission(1)
		mission.Instances["2024-01-01"] = model.DayClaimState{Completed: true, ClaimedNormal: true}
		require.NoError(t, tx.SaveDailyMission(context.Background(), mission))
		// no account staged, so this write fails at commit
		return tx.IncrementEconomy(context.Background(), 1, 10, 0)
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, store.Mission(1))
}

func TestStore_ConflictIsRetried(t *testing.T) {
	store := New(3)
	store.PutAccount(&model.UserAccount{UserID: 1})

	attempts := 0
	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		attempts++
		if _, _, err := tx.GetPlayer(context.Background(), 1); err != nil {
			return err
		}
		if attempts == 1 {
			// a competing transaction commits between our read and our commit
			require.NoError(t, store.RunTransaction(context.Background(), func(other repository.PlayerTx) error {
				return other.IncrementEconomy(context.Background(), 1, 1, 0)
			}))
		}
		return tx.IncrementEconomy(context.Background(), 1, 10, 0)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(11), store.Account(1).Economy.Coins)
}

func TestStore_ConflictExhaustsAttempts(t *testing.T) {
	store := New(2)
	store.PutAccount(&model.UserAccount{UserID: 1})

	attempts := 0
	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		attempts++
		if _, _, err := tx.GetPlayer(context.Background(), 1); err != nil {
			return err
		}
		store.PutAccount(&model.UserAccount{UserID: 1})
		return tx.IncrementEconomy(context.Background(), 1, 10, 0)
	})

	assert.ErrorIs(t, err, repository.ErrTxAborted)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(0), store.Account(1).Economy.Coins)
}

func TestStore_ReadsAreCopies(t *testing.T) {
	store := New(3)
	expires := now.Add(time.Hour)
	store.PutAccount(&model.UserAccount{UserID: 1, Vip: model.VipStatus{IsActive: true, ExpiresAt: &expires}})
	mission := model.NewDailyMission(1)
	mission.Instances["2024-01-01"] = model.DayClaimState{Completed: true, ClaimedVip: true}
	store.PutMission(mission)

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		account, mission, err := tx.GetPlayer(context.Background(), 1)
		require.NoError(t, err)
		*account.Vip.ExpiresAt = now.Add(-time.Hour)
		mission.Instances["2024-01-02"] = model.DayClaimState{}
		return nil
	})
	require.NoError(t, err)

	assert.True(t, store.Account(1).Vip.ExpiresAt.Equal(expires))
	assert.Len(t, store.Mission(1).Instances, 1)
}

func TestStore_SetVip(t *testing.T) {
	store := New(3)
	store.PutAccount(&model.UserAccount{UserID: 1})
	expires := now.Add(24 * time.Hour)

	err := store.RunTransaction(context.Background(), func(tx repository.PlayerTx) error {
		return tx.SetVip(context.Background(), 1, model.VipStatus{IsActive: true, ExpiresAt: &expires})
	})
	require.NoError(t, err)

	vip := store.Account(1).Vip
	assert.True(t, vip.IsActive)
	assert.True(t, vip.ExpiresAt.Equal(expires))
}
