package commission

import (
	"github.com/crowdlink/refpay/internal/commission/liveevents"
	"github.com/crowdlink/refpay/internal/commission/repository"
	"github.com/crowdlink/refpay/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(liveevents.NewHub),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
