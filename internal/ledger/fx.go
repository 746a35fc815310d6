package ledger

import (
	"github.com/smallbiznis/vpnbill/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
	fx.Provide(service.NewLister),
)
