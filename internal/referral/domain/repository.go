package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"gorm.io/gorm"
)

type Repository interface {
	CountByReferrer(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) (int64, error)
	ListByReferrer(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) ([]userdomain.User, error)
	ListByReferrers(ctx context.Context, db *gorm.DB, referrerIDs []snowflake.ID) ([]userdomain.User, error)
	// SetReferrer links the user only when no referrer is assigned yet and
	// reports whether the link was written.
	SetReferrer(ctx context.Context, db *gorm.DB, userID, referrerID snowflake.ID) (bool, error)
}
