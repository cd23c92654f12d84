package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type DistributeRequest struct {
	BuyerID snowflake.ID
	Amount  float64
}

// Distribution is one commission payment produced by a purchase.
type Distribution struct {
	EarnerID snowflake.ID `json:"earner_id"`
	Amount   float64      `json:"amount"`
	Tier     int          `json:"tier"`
}

type DistributeResponse struct {
	TransactionID snowflake.ID   `json:"transaction_id"`
	Distributions []Distribution `json:"distributions"`
}

type EarningsResponse struct {
	UserID       snowflake.ID    `json:"user_id"`
	Total        float64         `json:"total_earnings"`
	TotalsByTier map[int]float64 `json:"earnings_by_tier"`
	Details      []Earning       `json:"details"`
}

type LeaderboardEntry struct {
	EarnerID snowflake.ID `json:"user_id"`
	Name     string       `json:"name"`
	Total    float64      `json:"total_earnings"`
}

type Service interface {
	// Distribute applies the two-tier commission rules for one purchase and
	// returns the audit transaction plus every payment made. An empty
	// distribution list is a normal outcome, not an error.
	Distribute(context.Context, DistributeRequest) (DistributeResponse, error)
	LifetimeEarned(context.Context, snowflake.ID) (float64, error)
	Earnings(context.Context, snowflake.ID) (EarningsResponse, error)
	Leaderboard(context.Context, int) ([]LeaderboardEntry, error)
}

var (
	ErrBuyerNotFound = errors.New("buyer_not_found")
	ErrUserNotFound  = errors.New("user_not_found")
	ErrInvalidAmount = errors.New("invalid_amount")
)
