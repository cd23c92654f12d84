package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEarning(ctx context.Context, db *gorm.DB, earning *domain.Earning) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO earnings (id, earner_id, source_user_id, tier, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		earning.ID,
		earning.EarnerID,
		earning.SourceUserID,
		earning.Tier,
		earning.Amount,
		earning.CreatedAt,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (id, buyer_id, amount, valid, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.BuyerID,
		txn.Amount,
		txn.Valid,
		txn.Note,
		txn.CreatedAt,
	).Error
}

func (r *repo) SumLifetimeEarned(ctx context.Context, db *gorm.DB, earnerID snowflake.ID) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM earnings WHERE earner_id = ?`,
		earnerID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ListByEarner(ctx context.Context, db *gorm.DB, earnerID snowflake.ID) ([]domain.Earning, error) {
	var earnings []domain.Earning
	err := db.WithContext(ctx).Raw(
		`SELECT id, earner_id, source_user_id, tier, amount, created_at
		 FROM earnings WHERE earner_id = ?
		 ORDER BY created_at, id`,
		earnerID,
	).Scan(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repo) Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := db.WithContext(ctx).Raw(
		`SELECT u.id AS earner_id, u.name AS name, SUM(e.amount) AS total
		 FROM users u
		 JOIN earnings e ON e.earner_id = u.id
		 GROUP BY u.id, u.name
		 ORDER BY total DESC, u.id ASC
		 LIMIT ?`,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
