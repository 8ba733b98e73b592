package notification

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(service.NewService),
)
