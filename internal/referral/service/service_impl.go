package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/referral/domain"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	UserRepo userdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	userRepo userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("referral.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		userRepo: p.UserRepo,
	}
}

func (s *Service) Refer(ctx context.Context, req domain.ReferRequest) (userdomain.User, error) {
	if req.ReferrerID == req.UserID {
		return userdomain.User{}, domain.ErrSelfReferral
	}

	var linked userdomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the referrer row so the fan-out check and the link write are
		// serialized across concurrent referrals under the same referrer.
		referrer, err := s.userRepo.FindByIDForUpdate(ctx, tx, req.ReferrerID)
		if err != nil {
			return err
		}
		if referrer == nil {
			return domain.ErrReferrerNotFound
		}

		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if user.ReferrerID != nil {
			return domain.ErrAlreadyReferred
		}

		count, err := s.repo.CountByReferrer(ctx, tx, req.ReferrerID)
		if err != nil {
			return err
		}
		if count >= domain.MaxDirectReferrals {
			return domain.ErrReferralLimit
		}

		written, err := s.repo.SetReferrer(ctx, tx, req.UserID, req.ReferrerID)
		if err != nil {
			return err
		}
		if !written {
			return domain.ErrAlreadyReferred
		}

		linked = *user
		referrerID := req.ReferrerID
		linked.ReferrerID = &referrerID
		return nil
	})
	if err != nil {
		return userdomain.User{}, err
	}

	s.log.Info("user referred",
		zap.String("referrer_id", req.ReferrerID.String()),
		zap.String("user_id", req.UserID.String()),
	)
	return linked, nil
}

func (s *Service) CreateReferred(ctx context.Context, req domain.CreateReferredRequest) (userdomain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return userdomain.User{}, domain.ErrInvalidName
	}

	var created userdomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		referrer, err := s.userRepo.FindByIDForUpdate(ctx, tx, req.ReferrerID)
		if err != nil {
			return err
		}
		if referrer == nil {
			return domain.ErrReferrerNotFound
		}

		count, err := s.repo.CountByReferrer(ctx, tx, req.ReferrerID)
		if err != nil {
			return err
		}
		if count >= domain.MaxDirectReferrals {
			return domain.ErrReferralLimit
		}

		now := time.Now().UTC()
		referrerID := req.ReferrerID
		created = userdomain.User{
			ID:         s.genID.Generate(),
			Name:       name,
			Active:     true,
			ReferrerID: &referrerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return s.userRepo.Insert(ctx, tx, &created)
	})
	if err != nil {
		return userdomain.User{}, err
	}

	s.log.Info("referred user created",
		zap.String("referrer_id", req.ReferrerID.String()),
		zap.String("user_id", created.ID.String()),
	)
	return created, nil
}

func (s *Service) ListReferrals(ctx context.Context, userID snowflake.ID) (domain.ListReferralsResponse, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.ListReferralsResponse{}, err
	}
	if user == nil {
		return domain.ListReferralsResponse{}, domain.ErrUserNotFound
	}

	direct, err := s.repo.ListByReferrer(ctx, s.db, userID)
	if err != nil {
		return domain.ListReferralsResponse{}, err
	}

	directIDs := make([]snowflake.ID, 0, len(direct))
	for _, u := range direct {
		directIDs = append(directIDs, u.ID)
	}

	indirect, err := s.repo.ListByReferrers(ctx, s.db, directIDs)
	if err != nil {
		return domain.ListReferralsResponse{}, err
	}

	resp := domain.ListReferralsResponse{
		UserID:   userID,
		Direct:   make([]domain.ReferredUser, 0, len(direct)),
		Indirect: make([]domain.ReferredUser, 0, len(indirect)),
	}
	for _, u := range direct {
		resp.Direct = append(resp.Direct, domain.ReferredUser{
			ID:     u.ID,
			Name:   u.Name,
			Active: u.Active,
		})
	}
	for _, u := range indirect {
		resp.Indirect = append(resp.Indirect, domain.ReferredUser{
			ID:     u.ID,
			Name:   u.Name,
			Active: u.Active,
			Via:    u.ReferrerID,
		})
	}
	return resp, nil
}
