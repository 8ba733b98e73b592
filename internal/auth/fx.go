package auth

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(func(cfg config.Config) *TokenVerifier {
		return NewTokenVerifier(cfg.JWTSecret)
	}),
)
