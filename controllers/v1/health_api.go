package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"visa-interview-backend/config"
	"visa-interview-backend/db"
	stthandler "visa-interview-backend/lib/speech/stt"
	apimodels "visa-interview-backend/models/api"
)

func InitHealthApiRouters(app *fiber.App) {
	app.Get("health", healthCheck)
}

type healthStatus struct {
	Database      string `json:"database"`      //ok/error/disabled
	Transcription string `json:"transcription"` //ok/busy/disabled
}

// @Summary Состояние сервиса
// @Tags Служебные
// @Description Доступность БД и сервиса транскрибации
// @Success 200 {object} apimodels.Response
// @Failure 503 {object} apimodels.Response
// @router /api/v1/health [get]
func healthCheck(ctx *fiber.Ctx) error {
	status := healthStatus{
		Database:      "disabled",
		Transcription: "disabled",
	}
	code := fiber.StatusOK
	if db.DB != nil {
		status.Database = "ok"
		if err := db.PingDB(); err != nil {
			status.Database = "error"
			code = fiber.StatusServiceUnavailable
		}
	}
	if config.Conf.Speech.SttURL != "" {
		status.Transcription = "busy"
		if stthandler.Instance.IsAvailable() {
			status.Transcription = "ok"
		}
	}
	return ctx.Status(code).JSON(apimodels.NewResponse(status))
}
