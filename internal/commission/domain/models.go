package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// MinCommissionableAmount is the purchase threshold (in minor currency
	// units) below which no commission step runs.
	MinCommissionableAmount = 1000

	// LifetimeEarningsCap bounds the sum a single earner can ever receive.
	// The final qualifying payment is clipped to the remaining headroom.
	LifetimeEarningsCap = 1000

	TierDirect   = 1
	TierIndirect = 2

	TierDirectRate   = 0.05
	TierIndirectRate = 0.01
)

// Earning is an immutable ledger record of one commission payment.
type Earning struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	EarnerID     snowflake.ID `gorm:"not null;index" json:"earner_id"`
	SourceUserID snowflake.ID `gorm:"not null;index" json:"source_user_id"`
	Tier         int          `gorm:"not null" json:"tier"`
	Amount       float64      `gorm:"not null" json:"amount"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Transaction is the audit row written once per purchase attempt,
// regardless of whether any commission was distributed.
type Transaction struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BuyerID   snowflake.ID `gorm:"not null;index" json:"buyer_id"`
	Amount    float64      `gorm:"not null" json:"amount"`
	Valid     bool         `gorm:"not null;default:true" json:"valid"`
	Note      string       `gorm:"not null;default:''" json:"note"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
