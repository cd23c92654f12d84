package user

import (
	"github.com/crowdlink/refpay/internal/user/repository"
	"github.com/crowdlink/refpay/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
