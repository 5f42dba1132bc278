package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrCorruptState = errors.New("stored record violates its schema")

// Caller is the verified identity attached to a request.
type Caller struct {
	UserID   int64
	Username string
}

type Economy struct {
	Coins int64
	Gems  int64
}

type VipStatus struct {
	IsActive  bool
	ExpiresAt *time.Time
}

// ActiveAt reports whether the entitlement is active at now. A nil expiry
// never lapses.
func (v VipStatus) ActiveAt(now time.Time) bool {
	if !v.IsActive {
		return false
	}
	return v.ExpiresAt == nil || !v.ExpiresAt.Before(now)
}

type UserAccount struct {
	UserID    int64
	CreatedAt time.Time
	Economy   Economy
	Vip       VipStatus
}

// NewUserAccount returns the document staged for a player seen for the
// first time: zero balances and no VIP.
func NewUserAccount(userID int64, now time.Time) *UserAccount {
	return &UserAccount{
		UserID:    userID,
		CreatedAt: now,
	}
}

func (a *UserAccount) Validate() error {
	if a.Economy.Coins < 0 {
		return fmt.Errorf("%w: negative coins for user %d", ErrCorruptState, a.UserID)
	}
	if a.Economy.Gems < 0 {
		return fmt.Errorf("%w: negative gems for user %d", ErrCorruptState, a.UserID)
	}
	return nil
}
