package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"UD_daily_rewards/internal/metrics"
	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
)

type DailyLoginConfig struct {
	Rewards model.Rewards
	// RetentionDays > 0 drops day-keys older than that many days whenever
	// the mission is written.
	RetentionDays int
}

type DailyLoginService struct {
	store PlayerStore
	cfg   DailyLoginConfig
	now   func() time.Time
}

func NewDailyLoginService(store PlayerStore, cfg DailyLoginConfig, now func() time.Time) *DailyLoginService {
	if now == nil {
		now = time.Now
	}
	return &DailyLoginService{
		store: store,
		cfg:   cfg,
		now:   now,
	}
}

// ValidateClaimRequest normalizes the caller and requested variant. An
// empty variant means normal.
func ValidateClaimRequest(caller *model.Caller, variant string) (*model.ClaimRequest, error) {
	if caller == nil || caller.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	v := model.Variant(variant)
	if v == "" {
		v = model.VariantNormal
	}
	if v != model.VariantNormal && v != model.VariantVip {
		return nil, ErrInvalidVariant
	}

	return &model.ClaimRequest{
		UserID:  caller.UserID,
		Variant: v,
	}, nil
}

// Claim grants today's reward for req.Variant at most once per UTC day.
// Eligibility check, balance increment and claim marking happen in one
// store transaction; a lost race re-runs the whole body, so the loser
// observes the winner's flag and gets an already-exists error.
func (s *DailyLoginService) Claim(ctx context.Context, req *model.ClaimRequest) (model.Reward, error) {
	var granted model.Reward

	err := s.store.RunTransaction(ctx, func(tx repository.PlayerTx) error {
		now := s.now()
		todayKey := model.DayKey(now)

		account, mission, err := s.readPlayer(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		if account == nil {
			if err := tx.CreateAccount(ctx, model.NewUserAccount(req.UserID, now)); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		}

		// a freshly created account is never VIP
		vipActive := account != nil && account.Vip.ActiveAt(now)
		if req.Variant == model.VariantVip && !vipActive {
			return ErrVipRequired
		}

		if mission == nil {
			mission = model.NewDailyMission(req.UserID)
		}
		today := mission.Day(todayKey)
		if today.Claimed(req.Variant) {
			return alreadyClaimed(req.Variant)
		}

		reward := s.cfg.Rewards.For(req.Variant)
		if err := tx.IncrementEconomy(ctx, req.UserID, reward.Coins, reward.Gems); err != nil {
			return fmt.Errorf("failed to increment economy: %w", err)
		}

		today.Mark(req.Variant)
		mission.Instances[todayKey] = today
		mission.Prune(now, s.cfg.RetentionDays)
		mission.UpdatedAt = now
		if err := tx.SaveDailyMission(ctx, mission); err != nil {
			return fmt.Errorf("failed to save daily mission: %w", err)
		}

		granted = reward
		return nil
	})

	metrics.Claims.WithLabelValues(string(req.Variant), claimOutcome(err)).Inc()
	if err != nil {
		return model.Reward{}, err
	}

	return granted, nil
}

func (s *DailyLoginService) Status(ctx context.Context, userID int64) (*model.DailyLoginStatus, error) {
	var status *model.DailyLoginStatus

	err := s.store.RunTransaction(ctx, func(tx repository.PlayerTx) error {
		now := s.now()
		dayKey := model.DayKey(now)

		account, mission, err := s.readPlayer(ctx, tx, userID)
		if err != nil {
			return err
		}

		status = &model.DailyLoginStatus{
			DayKey:      dayKey,
			Today:       mission.Day(dayKey),
			VipActive:   account != nil && account.Vip.ActiveAt(now),
			NextResetAt: model.NextReset(now),
			Rewards:     s.cfg.Rewards,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return status, nil
}

func (s *DailyLoginService) readPlayer(ctx context.Context, tx repository.PlayerTx, userID int64) (*model.UserAccount, *model.DailyMission, error) {
	account, mission, err := tx.GetPlayer(ctx, userID)
	if err != nil {
		return nil, nil, corruptOr(err, "failed to read player")
	}

	if account != nil {
		if err := account.Validate(); err != nil {
			return nil, nil, corruptOr(err, "invalid account")
		}
	}
	if mission != nil {
		if err := mission.Validate(); err != nil {
			return nil, nil, corruptOr(err, "invalid daily mission")
		}
	}

	return account, mission, nil
}

func corruptOr(err error, msg string) error {
	if errors.Is(err, model.ErrCorruptState) {
		return fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeGranted
	case KindOf(err) != "" && KindOf(err) != KindCorruptState:
		return metrics.OutcomeRefused
	default:
		return metrics.OutcomeFailed
	}
}

type ClaimResponse struct {
	OK             bool         `json:"ok"`
	RewardsGranted model.Reward `json:"rewardsGranted"`
}

func FormatClaimResponse(reward model.Reward) ClaimResponse {
	return ClaimResponse{
		OK:             true,
		RewardsGranted: reward,
	}
}
