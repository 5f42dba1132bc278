package service

import (
	"errors"

	"UD_daily_rewards/internal/model"
)

// Kind is the machine-readable class of a domain error.
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidArgument    Kind = "invalid-argument"
	KindFailedPrecondition Kind = "failed-precondition"
	KindAlreadyExists      Kind = "already-exists"
	KindNotFound           Kind = "not-found"
	KindCorruptState       Kind = "corrupt-state"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Message: "Login required"}
	ErrInvalidVariant       = &Error{Kind: KindInvalidArgument, Message: "variant must be 'normal' or 'vip'"}
	ErrVipRequired          = &Error{Kind: KindFailedPrecondition, Message: "VIP required"}
	ErrNormalAlreadyClaimed = &Error{Kind: KindAlreadyExists, Message: "Normal reward already claimed today"}
	ErrVipAlreadyClaimed    = &Error{Kind: KindAlreadyExists, Message: "VIP reward already claimed today"}
	ErrPlayerNotFound       = &Error{Kind: KindNotFound, Message: "player not found"}
	ErrInvalidVipDuration   = &Error{Kind: KindInvalidArgument, Message: "vip duration must be positive"}
	ErrCorruptState         = &Error{Kind: KindCorruptState, Message: "stored player data is inconsistent"}
)

// AsError returns the domain error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func alreadyClaimed(variant model.Variant) error {
	if variant == model.VariantVip {
		return ErrVipAlreadyClaimed
	}
	return ErrNormalAlreadyClaimed
}
