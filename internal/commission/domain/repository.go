package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEarning(ctx context.Context, db *gorm.DB, earning *Earning) error
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	SumLifetimeEarned(ctx context.Context, db *gorm.DB, earnerID snowflake.ID) (float64, error)
	ListByEarner(ctx context.Context, db *gorm.DB, earnerID snowflake.ID) ([]Earning, error)
	Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]LeaderboardEntry, error)
}
