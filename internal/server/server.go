package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/crowdlink/refpay/internal/commission"
	commissiondomain "github.com/crowdlink/refpay/internal/commission/domain"
	"github.com/crowdlink/refpay/internal/commission/liveevents"
	"github.com/crowdlink/refpay/internal/config"
	"github.com/crowdlink/refpay/internal/observability"
	obsmiddleware "github.com/crowdlink/refpay/internal/observability/logger"
	obstracing "github.com/crowdlink/refpay/internal/observability/tracing"
	"github.com/crowdlink/refpay/internal/referral"
	referraldomain "github.com/crowdlink/refpay/internal/referral/domain"
	"github.com/crowdlink/refpay/internal/user"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	user.Module,
	referral.Module,
	commission.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	userSvc       userdomain.Service
	referralSvc   referraldomain.Service
	commissionSvc commissiondomain.Service
	liveEvents    *liveevents.Hub
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	UserSvc       userdomain.Service
	ReferralSvc   referraldomain.Service
	CommissionSvc commissiondomain.Service
	LiveEvents    *liveevents.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		userSvc:       p.UserSvc,
		referralSvc:   p.ReferralSvc,
		commissionSvc: p.CommissionSvc,
		liveEvents:    p.LiveEvents,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Users --------
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.GetUserByID)
	api.POST("/users/:id/deactivate", s.DeactivateUser)
	api.POST("/users/:id/reactivate", s.ReactivateUser)

	// -------- Referrals --------
	api.POST("/referrals", s.ReferUser)
	api.POST("/referrals/users", s.CreateReferredUser)
	api.GET("/users/:id/referrals", s.ListUserReferrals)

	// -------- Purchases & Earnings --------
	api.POST("/purchases", s.MakePurchase)
	api.GET("/users/:id/earnings", s.GetUserEarnings)
	api.GET("/leaderboard", s.GetLeaderboard)

	// -------- Live commission events --------
	api.GET("/users/:id/events", s.StreamCommissionEvents)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		if fileExists(s.cfg.PublicDir, c.Request.URL.Path) {
			c.File(filepath.Join(s.cfg.PublicDir, filepath.Clean(c.Request.URL.Path)))
			return
		}

		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"type": "not_found", "message": "not found"}})
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
