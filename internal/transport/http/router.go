package http

import (
	"github.com/gin-gonic/gin"
	"github.com/ovii/ledger-service/internal/config"
	"github.com/ovii/ledger-service/internal/service"
	"go.uber.org/zap"
)

func NewRouter(svc *service.WalletService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogging(log))
	r.Use(Throttle(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc)
	return r
}
