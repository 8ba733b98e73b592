package messaging

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/hub"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/service"
	"go.uber.org/fx"
)

var Module = fx.Module("messaging.service",
	fx.Provide(hub.New),
	fx.Provide(service.NewService),
)
