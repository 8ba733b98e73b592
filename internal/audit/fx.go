package audit

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
