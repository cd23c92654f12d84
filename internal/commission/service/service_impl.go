package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/commission/domain"
	"github.com/crowdlink/refpay/internal/commission/liveevents"
	obsmetrics "github.com/crowdlink/refpay/internal/observability/metrics"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100

	purchaseNote = "auto-logged from purchase API"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	UserRepo   userdomain.Repository
	LiveEvents *liveevents.Hub     `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	userRepo   userdomain.Repository
	liveEvents *liveevents.Hub
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		liveEvents: p.LiveEvents,
		obsMetrics: p.ObsMetrics,
	}
}

// Distribute runs the fixed two-tier walk: 5% to the buyer's direct referrer,
// 1% to the grand-referrer, each clipped against that earner's own lifetime
// cap. An inactive referrer forfeits the tier; it is never redirected. The
// audit transaction, the earner reads and every earning land in one storage
// transaction, so either all writes take effect or none do.
func (s *Service) Distribute(ctx context.Context, req domain.DistributeRequest) (domain.DistributeResponse, error) {
	if req.Amount < 0 {
		return domain.DistributeResponse{}, domain.ErrInvalidAmount
	}

	var resp domain.DistributeResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buyer, err := s.userRepo.FindByID(ctx, tx, req.BuyerID)
		if err != nil {
			return err
		}
		if buyer == nil {
			return domain.ErrBuyerNotFound
		}

		txn := domain.Transaction{
			ID:        s.genID.Generate(),
			BuyerID:   buyer.ID,
			Amount:    req.Amount,
			Valid:     true,
			Note:      purchaseNote,
			CreatedAt: nowUTC(),
		}
		if err := s.repo.InsertTransaction(ctx, tx, &txn); err != nil {
			return err
		}
		resp.TransactionID = txn.ID
		resp.Distributions = []domain.Distribution{}

		if req.Amount < domain.MinCommissionableAmount {
			return nil
		}
		if buyer.ReferrerID == nil {
			return nil
		}

		parent, err := s.userRepo.FindByIDForUpdate(ctx, tx, *buyer.ReferrerID)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}

		if parent.Active {
			dist, err := s.payCommission(ctx, tx, parent.ID, buyer.ID, domain.TierDirect, req.Amount*domain.TierDirectRate)
			if err != nil {
				return err
			}
			if dist != nil {
				resp.Distributions = append(resp.Distributions, *dist)
			}
		} else {
			s.log.Debug("skipping inactive referrer", zap.String("earner_id", parent.ID.String()))
		}

		// Tier 2 is evaluated whenever the parent resolved, regardless of
		// whether tier 1 paid out.
		if parent.ReferrerID == nil {
			return nil
		}
		grandparent, err := s.userRepo.FindByIDForUpdate(ctx, tx, *parent.ReferrerID)
		if err != nil {
			return err
		}
		if grandparent == nil {
			return nil
		}
		if !grandparent.Active {
			s.log.Debug("skipping inactive grand-referrer", zap.String("earner_id", grandparent.ID.String()))
			return nil
		}

		dist, err := s.payCommission(ctx, tx, grandparent.ID, buyer.ID, domain.TierIndirect, req.Amount*domain.TierIndirectRate)
		if err != nil {
			return err
		}
		if dist != nil {
			resp.Distributions = append(resp.Distributions, *dist)
		}
		return nil
	})
	if err != nil {
		return domain.DistributeResponse{}, err
	}

	s.recordPurchase(ctx, req.Amount, resp.Distributions)
	s.notify(ctx, resp.Distributions)
	return resp, nil
}

// payCommission applies the cap-and-clip rule for a single earner. The caller
// must hold the earner's row lock so the read-sum/write-earning sequence is
// serialized per earner.
func (s *Service) payCommission(ctx context.Context, tx *gorm.DB, earnerID, sourceID snowflake.ID, tier int, rawAmount float64) (*domain.Distribution, error) {
	total, err := s.repo.SumLifetimeEarned(ctx, tx, earnerID)
	if err != nil {
		return nil, err
	}
	if total >= domain.LifetimeEarningsCap {
		return nil, nil
	}

	profit := round2(rawAmount)
	if total+profit > domain.LifetimeEarningsCap {
		profit = round2(domain.LifetimeEarningsCap - total)
	}

	earning := domain.Earning{
		ID:           s.genID.Generate(),
		EarnerID:     earnerID,
		SourceUserID: sourceID,
		Tier:         tier,
		Amount:       profit,
		CreatedAt:    nowUTC(),
	}
	if err := s.repo.InsertEarning(ctx, tx, &earning); err != nil {
		return nil, err
	}

	return &domain.Distribution{
		EarnerID: earnerID,
		Amount:   profit,
		Tier:     tier,
	}, nil
}

func (s *Service) LifetimeEarned(ctx context.Context, earnerID snowflake.ID) (float64, error) {
	total, err := s.repo.SumLifetimeEarned(ctx, s.db, earnerID)
	if err != nil {
		return 0, err
	}
	return round2(total), nil
}

func (s *Service) Earnings(ctx context.Context, userID snowflake.ID) (domain.EarningsResponse, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.EarningsResponse{}, err
	}
	if user == nil {
		return domain.EarningsResponse{}, domain.ErrUserNotFound
	}

	earnings, err := s.repo.ListByEarner(ctx, s.db, userID)
	if err != nil {
		return domain.EarningsResponse{}, err
	}

	resp := domain.EarningsResponse{
		UserID: userID,
		TotalsByTier: map[int]float64{
			domain.TierDirect:   0,
			domain.TierIndirect: 0,
		},
		Details: earnings,
	}
	for _, e := range earnings {
		resp.Total += e.Amount
		resp.TotalsByTier[e.Tier] += e.Amount
	}
	resp.Total = round2(resp.Total)
	for tier, total := range resp.TotalsByTier {
		resp.TotalsByTier[tier] = round2(total)
	}
	return resp, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := s.repo.Leaderboard(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Total = round2(entries[i].Total)
	}
	return entries, nil
}

// notify is a best-effort post-commit broadcast; the purchase never fails or
// blocks on delivery.
func (s *Service) notify(ctx context.Context, distributions []domain.Distribution) {
	for _, dist := range distributions {
		if s.liveEvents != nil {
			s.liveEvents.Publish(dist.EarnerID, liveevents.LiveEvent{
				EarnerID: dist.EarnerID,
				Amount:   dist.Amount,
				Tier:     dist.Tier,
			})
		}
		s.obsMetrics.RecordCommission(ctx, dist.Tier, dist.Amount)
		s.log.Info("commission distributed",
			zap.String("earner_id", dist.EarnerID.String()),
			zap.Float64("amount", dist.Amount),
			zap.Int("tier", dist.Tier),
		)
	}
}

func (s *Service) recordPurchase(ctx context.Context, amount float64, distributions []domain.Distribution) {
	outcome := "no_distribution"
	switch {
	case amount < domain.MinCommissionableAmount:
		outcome = "below_threshold"
	case len(distributions) > 0:
		outcome = "distributed"
	}
	s.obsMetrics.RecordPurchase(ctx, outcome)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
