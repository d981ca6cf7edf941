package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pitwall/internal/http"
	httpH "github.com/yungbote/pitwall/internal/http/handlers"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Chat   *httpH.ChatHandler
	Status *httpH.StatusHandler
}

func wireHandlers(log *logger.Logger, services Services, repos Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Chat:   httpH.NewChatHandler(log, services.Chat),
		Status: httpH.NewStatusHandler(log, repos.Chunks, repos.Runs),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		HealthHandler: handlers.Health,
		ChatHandler:   handlers.Chat,
		StatusHandler: handlers.Status,
	})
}
