package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"transaction-processor/internal/config"
	"transaction-processor/internal/service"
)

func NewRouter(submitter *service.Submitter, status StatusReader, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, submitter, status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
