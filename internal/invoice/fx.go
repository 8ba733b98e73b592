package invoice

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(service.NewService),
)
