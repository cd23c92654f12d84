package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
)

// MaxDirectReferrals caps the fan-out of any single referrer.
const MaxDirectReferrals = 8

type ReferRequest struct {
	ReferrerID snowflake.ID
	UserID     snowflake.ID
}

type CreateReferredRequest struct {
	ReferrerID snowflake.ID
	Name       string
}

// ReferredUser is the listing view of a referred account. Via is the direct
// referrer that the relation goes through; it is only set on indirect rows.
type ReferredUser struct {
	ID     snowflake.ID  `json:"id"`
	Name   string        `json:"name"`
	Active bool          `json:"active"`
	Via    *snowflake.ID `json:"via,omitempty"`
}

type ListReferralsResponse struct {
	UserID   snowflake.ID   `json:"user_id"`
	Direct   []ReferredUser `json:"direct_referrals"`
	Indirect []ReferredUser `json:"indirect_referrals"`
}

type Service interface {
	// Refer links an existing, unlinked user under the referrer.
	Refer(context.Context, ReferRequest) (userdomain.User, error)
	// CreateReferred creates a new user already linked under the referrer.
	CreateReferred(context.Context, CreateReferredRequest) (userdomain.User, error)
	// ListReferrals returns direct (one hop) and indirect (exactly two hops)
	// referrals of the user.
	ListReferrals(context.Context, snowflake.ID) (ListReferralsResponse, error)
}

var (
	ErrReferrerNotFound = errors.New("referrer_not_found")
	ErrUserNotFound     = errors.New("user_not_found")
	ErrAlreadyReferred  = errors.New("already_referred")
	ErrReferralLimit    = errors.New("referral_limit_reached")
	ErrSelfReferral     = errors.New("self_referral")
	ErrInvalidName      = errors.New("invalid_name")
)
