package model

import (
	"fmt"
	"time"
)

const (
	DailyLoginMissionID = "daily_login"
	DayKeyLayout        = "2006-01-02"
)

type Variant string

const (
	VariantNormal Variant = "normal"
	VariantVip    Variant = "vip"
)

// DayKey partitions claims by UTC calendar date.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

type ClaimRequest struct {
	UserID  int64
	Variant Variant
}

type RewardItem struct {
	ID  string `json:"id" mapstructure:"id"`
	Qty int    `json:"qty" mapstructure:"qty"`
}

type Reward struct {
	Coins int64        `json:"coins" mapstructure:"coins"`
	Gems  int64        `json:"gems" mapstructure:"gems"`
	Items []RewardItem `json:"items,omitempty" mapstructure:"items"`
}

type Rewards struct {
	Normal Reward `mapstructure:"normal"`
	Vip    Reward `mapstructure:"vip"`
}

func DefaultRewards() Rewards {
	return Rewards{
		Normal: Reward{Coins: 100, Gems: 5},
		Vip:    Reward{Coins: 250, Gems: 15},
	}
}

func (r Rewards) For(variant Variant) Reward {
	if variant == VariantVip {
		return r.Vip
	}
	return r.Normal
}

type DayClaimState struct {
	Completed     bool `json:"completed"`
	ClaimedNormal bool `json:"claimedNormal"`
	ClaimedVip    bool `json:"claimedVip"`
}

func (s DayClaimState) Claimed(variant Variant) bool {
	if variant == VariantVip {
		return s.ClaimedVip
	}
	return s.ClaimedNormal
}

// Mark sets the variant's flag. Flags are never cleared.
func (s *DayClaimState) Mark(variant Variant) {
	if variant == VariantVip {
		s.ClaimedVip = true
	} else {
		s.ClaimedNormal = true
	}
	s.Completed = true
}

// DailyMission is the per-player daily_login record: one entry per day-key
// on which at least one variant was claimed.
type DailyMission struct {
	UserID    int64
	Instances map[string]DayClaimState
	UpdatedAt time.Time
}

func NewDailyMission(userID int64) *DailyMission {
	return &DailyMission{
		UserID:    userID,
		Instances: make(map[string]DayClaimState),
	}
}

func (m *DailyMission) Day(dayKey string) DayClaimState {
	if m == nil {
		return DayClaimState{}
	}
	return m.Instances[dayKey]
}

func (m *DailyMission) Validate() error {
	for key, state := range m.Instances {
		if _, err := time.Parse(DayKeyLayout, key); err != nil {
			return fmt.Errorf("%w: bad day-key %q for user %d", ErrCorruptState, key, m.UserID)
		}
		if state.Completed != (state.ClaimedNormal || state.ClaimedVip) {
			return fmt.Errorf("%w: inconsistent day %s for user %d", ErrCorruptState, key, m.UserID)
		}
	}
	return nil
}

// Prune drops day-keys strictly older than keepDays days before today.
// keepDays <= 0 keeps everything.
func (m *DailyMission) Prune(today time.Time, keepDays int) {
	if keepDays <= 0 {
		return
	}
	cutoff := DayKey(today.AddDate(0, 0, -keepDays))
	for key := range m.Instances {
		// day-keys are zero-padded so lexical order is date order
		if key < cutoff {
			delete(m.Instances, key)
		}
	}
}

type DailyLoginStatus struct {
	DayKey      string
	Today       DayClaimState
	VipActive   bool
	NextResetAt time.Time
	Rewards     Rewards
}

// NextReset is the UTC midnight following t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
