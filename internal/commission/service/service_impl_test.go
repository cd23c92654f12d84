package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/commission/domain"
	"github.com/crowdlink/refpay/internal/commission/liveevents"
	"github.com/crowdlink/refpay/internal/commission/repository"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	userrepository "github.com/crowdlink/refpay/internal/user/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	strip := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_strip_for_update", strip))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("sqlite_strip_for_update_row", strip))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&userdomain.User{}, &domain.Earning{}, &domain.Transaction{}))
	return db
}

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	hub  *liveevents.Hub
	svc  domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	hub := liveevents.NewHub()
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		UserRepo:   userrepository.Provide(),
		LiveEvents: hub,
	})
	return &testEnv{db: db, node: node, hub: hub, svc: svc}
}

func (e *testEnv) createUser(t *testing.T, name string, active bool, referrerID *snowflake.ID) userdomain.User {
	t.Helper()

	now := time.Now().UTC()
	user := userdomain.User{
		ID:         e.node.Generate(),
		Name:       name,
		Active:     active,
		ReferrerID: referrerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

// createChain seeds grandparent -> parent -> buyer with every user active.
func (e *testEnv) createChain(t *testing.T) (grandparent, parent, buyer userdomain.User) {
	t.Helper()

	grandparent = e.createUser(t, "grandparent", true, nil)
	parent = e.createUser(t, "parent", true, &grandparent.ID)
	buyer = e.createUser(t, "buyer", true, &parent.ID)
	return grandparent, parent, buyer
}

func (e *testEnv) seedEarning(t *testing.T, earnerID snowflake.ID, tier int, amount float64) {
	t.Helper()

	require.NoError(t, e.db.Create(&domain.Earning{
		ID:           e.node.Generate(),
		EarnerID:     earnerID,
		SourceUserID: earnerID,
		Tier:         tier,
		Amount:       amount,
		CreatedAt:    time.Now().UTC(),
	}).Error)
}

func (e *testEnv) earningCount(t *testing.T, earnerID snowflake.ID) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&domain.Earning{}).Where("earner_id = ?", earnerID).Count(&count).Error)
	return count
}

func TestDistribute_TwoTierPayout(t *testing.T) {
	env := newTestEnv(t)
	grandparent, parent, buyer := env.createChain(t)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 2)
	assert.NotZero(t, resp.TransactionID)

	assert.Equal(t, parent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, domain.TierDirect, resp.Distributions[0].Tier)
	assert.Equal(t, 100.0, resp.Distributions[0].Amount)

	assert.Equal(t, grandparent.ID, resp.Distributions[1].EarnerID)
	assert.Equal(t, domain.TierIndirect, resp.Distributions[1].Tier)
	assert.Equal(t, 20.0, resp.Distributions[1].Amount)

	parentTotal, err := env.svc.LifetimeEarned(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, parentTotal)

	grandparentTotal, err := env.svc.LifetimeEarned(context.Background(), grandparent.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, grandparentTotal)

	var txn domain.Transaction
	require.NoError(t, env.db.First(&txn, "id = ?", resp.TransactionID).Error)
	assert.Equal(t, buyer.ID, txn.BuyerID)
	assert.Equal(t, 2000.0, txn.Amount)
	assert.True(t, txn.Valid)
	assert.Equal(t, "auto-logged from purchase API", txn.Note)
}

func TestDistribute_BelowThresholdWritesTransactionOnly(t *testing.T) {
	env := newTestEnv(t)
	grandparent, parent, buyer := env.createChain(t)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  999.99,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Distributions)
	assert.NotZero(t, resp.TransactionID)

	assert.Zero(t, env.earningCount(t, parent.ID))
	assert.Zero(t, env.earningCount(t, grandparent.ID))

	var txnCount int64
	require.NoError(t, env.db.Model(&domain.Transaction{}).Count(&txnCount).Error)
	assert.Equal(t, int64(1), txnCount)
}

func TestDistribute_ThresholdIsInclusive(t *testing.T) {
	env := newTestEnv(t)
	_, parent, buyer := env.createChain(t)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  1000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 2)
	assert.Equal(t, parent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, 50.0, resp.Distributions[0].Amount)
	assert.Equal(t, 10.0, resp.Distributions[1].Amount)
}

func TestDistribute_RoundsToCents(t *testing.T) {
	env := newTestEnv(t)
	grandparent, parent, buyer := env.createChain(t)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  1111,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 2)
	assert.Equal(t, 55.55, resp.Distributions[0].Amount)
	assert.Equal(t, 11.11, resp.Distributions[1].Amount)

	parentTotal, err := env.svc.LifetimeEarned(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.55, parentTotal)

	grandparentTotal, err := env.svc.LifetimeEarned(context.Background(), grandparent.ID)
	require.NoError(t, err)
	assert.Equal(t, 11.11, grandparentTotal)
}

func TestDistribute_ClipsFinalPaymentToHeadroom(t *testing.T) {
	env := newTestEnv(t)
	_, parent, buyer := env.createChain(t)
	env.seedEarning(t, parent.ID, domain.TierDirect, 980)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 2)
	assert.Equal(t, parent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, 20.0, resp.Distributions[0].Amount)

	parentTotal, err := env.svc.LifetimeEarned(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(domain.LifetimeEarningsCap), parentTotal)
}

func TestDistribute_CappedEarnerIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	grandparent, parent, buyer := env.createChain(t)
	env.seedEarning(t, parent.ID, domain.TierDirect, domain.LifetimeEarningsCap)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)

	// The parent is capped out; only the grandparent gets paid.
	require.Len(t, resp.Distributions, 1)
	assert.Equal(t, grandparent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, domain.TierIndirect, resp.Distributions[0].Tier)
	assert.Equal(t, 20.0, resp.Distributions[0].Amount)
	assert.Equal(t, int64(1), env.earningCount(t, parent.ID))
}

func TestDistribute_CapHoldsAcrossManyPurchases(t *testing.T) {
	env := newTestEnv(t)
	_, parent, buyer := env.createChain(t)

	// 5% of 5000 is 250, so the fourth purchase reaches the cap exactly and
	// the fifth pays nothing.
	for i := 0; i < 5; i++ {
		_, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
			BuyerID: buyer.ID,
			Amount:  5000,
		})
		require.NoError(t, err)
	}

	total, err := env.svc.LifetimeEarned(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(domain.LifetimeEarningsCap), total)
	assert.Equal(t, int64(4), env.earningCount(t, parent.ID))
}

func TestDistribute_InactiveReferrerForfeitsTierOne(t *testing.T) {
	env := newTestEnv(t)
	grandparent := env.createUser(t, "grandparent", true, nil)
	parent := env.createUser(t, "parent", false, &grandparent.ID)
	buyer := env.createUser(t, "buyer", true, &parent.ID)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)

	// Tier 1 is forfeited, never redirected; tier 2 still pays out.
	require.Len(t, resp.Distributions, 1)
	assert.Equal(t, grandparent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, domain.TierIndirect, resp.Distributions[0].Tier)
	assert.Equal(t, 20.0, resp.Distributions[0].Amount)
	assert.Zero(t, env.earningCount(t, parent.ID))
}

func TestDistribute_InactiveGrandReferrerForfeitsTierTwo(t *testing.T) {
	env := newTestEnv(t)
	grandparent := env.createUser(t, "grandparent", false, nil)
	parent := env.createUser(t, "parent", true, &grandparent.ID)
	buyer := env.createUser(t, "buyer", true, &parent.ID)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 1)
	assert.Equal(t, parent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, domain.TierDirect, resp.Distributions[0].Tier)
	assert.Zero(t, env.earningCount(t, grandparent.ID))
}

func TestDistribute_NoReferrerShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "buyer", true, nil)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Distributions)
	assert.NotZero(t, resp.TransactionID)
}

func TestDistribute_MissingGrandReferrerStopsAtTierOne(t *testing.T) {
	env := newTestEnv(t)
	parent := env.createUser(t, "parent", true, nil)
	buyer := env.createUser(t, "buyer", true, &parent.ID)

	resp, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 1)
	assert.Equal(t, parent.ID, resp.Distributions[0].EarnerID)
	assert.Equal(t, domain.TierDirect, resp.Distributions[0].Tier)
}

func TestDistribute_BuyerNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: env.node.Generate(),
		Amount:  2000,
	})
	require.ErrorIs(t, err, domain.ErrBuyerNotFound)

	var txnCount int64
	require.NoError(t, env.db.Model(&domain.Transaction{}).Count(&txnCount).Error)
	assert.Zero(t, txnCount)
}

func TestDistribute_NegativeAmount(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "buyer", true, nil)

	_, err := env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  -1,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDistribute_PublishesLiveEvents(t *testing.T) {
	env := newTestEnv(t)
	_, parent, buyer := env.createChain(t)

	subscription, backlog, err := env.hub.Subscribe(parent.ID)
	require.NoError(t, err)
	defer subscription.Close()
	assert.Empty(t, backlog)

	_, err = env.svc.Distribute(context.Background(), domain.DistributeRequest{
		BuyerID: buyer.ID,
		Amount:  2000,
	})
	require.NoError(t, err)

	select {
	case event := <-subscription.Events():
		assert.Equal(t, parent.ID, event.EarnerID)
		assert.Equal(t, 100.0, event.Amount)
		assert.Equal(t, domain.TierDirect, event.Tier)
	case <-time.After(time.Second):
		t.Fatal("expected a live event for the tier-1 earner")
	}
}

func TestEarnings_Breakdown(t *testing.T) {
	env := newTestEnv(t)
	earner := env.createUser(t, "earner", true, nil)
	env.seedEarning(t, earner.ID, domain.TierDirect, 50)
	env.seedEarning(t, earner.ID, domain.TierDirect, 25.5)
	env.seedEarning(t, earner.ID, domain.TierIndirect, 10)

	resp, err := env.svc.Earnings(context.Background(), earner.ID)
	require.NoError(t, err)
	assert.Equal(t, earner.ID, resp.UserID)
	assert.Equal(t, 85.5, resp.Total)
	assert.Equal(t, 75.5, resp.TotalsByTier[domain.TierDirect])
	assert.Equal(t, 10.0, resp.TotalsByTier[domain.TierIndirect])
	assert.Len(t, resp.Details, 3)
}

func TestEarnings_UserNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Earnings(context.Background(), env.node.Generate())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLifetimeEarned_ZeroWithoutEarnings(t *testing.T) {
	env := newTestEnv(t)
	earner := env.createUser(t, "earner", true, nil)

	total, err := env.svc.LifetimeEarned(context.Background(), earner.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLeaderboard_OrdersByTotalDescending(t *testing.T) {
	env := newTestEnv(t)
	first := env.createUser(t, "first", true, nil)
	second := env.createUser(t, "second", true, nil)
	third := env.createUser(t, "third", true, nil)
	env.createUser(t, "no-earnings", true, nil)

	env.seedEarning(t, first.ID, domain.TierDirect, 300)
	env.seedEarning(t, second.ID, domain.TierDirect, 150)
	env.seedEarning(t, second.ID, domain.TierIndirect, 25)
	env.seedEarning(t, third.ID, domain.TierIndirect, 5)

	entries, err := env.svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, first.ID, entries[0].EarnerID)
	assert.Equal(t, 300.0, entries[0].Total)
	assert.Equal(t, second.ID, entries[1].EarnerID)
	assert.Equal(t, 175.0, entries[1].Total)
	assert.Equal(t, third.ID, entries[2].EarnerID)
	assert.Equal(t, 5.0, entries[2].Total)
}

func TestLeaderboard_RespectsLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		earner := env.createUser(t, fmt.Sprintf("earner-%d", i), true, nil)
		env.seedEarning(t, earner.ID, domain.TierDirect, float64(100-i))
	}

	entries, err := env.svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
