package referral

import (
	"github.com/crowdlink/refpay/internal/referral/repository"
	"github.com/crowdlink/refpay/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
