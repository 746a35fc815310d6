package billstore

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/vpnbill/internal/config"
)

var Module = fx.Module("billstore",
	fx.Provide(New),
)

func New(cfg config.Config, log *zap.Logger) (Store, error) {
	return NewFS(Config{
		BaseDir: cfg.MediaDir,
		BaseURL: cfg.MediaBaseURL,
	}, log)
}
