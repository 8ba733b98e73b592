package directory

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("directory.service",
	fx.Provide(service.NewService),
)
