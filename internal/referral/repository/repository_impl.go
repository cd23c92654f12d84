package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/referral/domain"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountByReferrer(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users WHERE referrer_id = ?`,
		referrerID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListByReferrer(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) ([]userdomain.User, error) {
	var users []userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, active, referrer_id, created_at, updated_at
		 FROM users WHERE referrer_id = ?
		 ORDER BY created_at, id`,
		referrerID,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListByReferrers(ctx context.Context, db *gorm.DB, referrerIDs []snowflake.ID) ([]userdomain.User, error) {
	if len(referrerIDs) == 0 {
		return nil, nil
	}
	var users []userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, active, referrer_id, created_at, updated_at
		 FROM users WHERE referrer_id IN ?
		 ORDER BY created_at, id`,
		referrerIDs,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) SetReferrer(ctx context.Context, db *gorm.DB, userID, referrerID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET referrer_id = ?, updated_at = ?
		 WHERE id = ? AND referrer_id IS NULL`,
		referrerID,
		time.Now().UTC(),
		userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
