package apiv1

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"visa-interview-backend/controllers"
	pdfexport "visa-interview-backend/lib/export/pdf"
	xlsexport "visa-interview-backend/lib/export/xls"
	interviewhandler "visa-interview-backend/lib/interview"
	interviewsession "visa-interview-backend/lib/interview/session"
	apimodels "visa-interview-backend/models/api"
	interviewapimodels "visa-interview-backend/models/api/interview"
)

type interviewApiController struct {
	controllers.BaseAPIController
}

func InitInterviewApiRouters(app *fiber.App) {
	controller := interviewApiController{}
	app.Route("interview", func(interviewRootRoute fiber.Router) {
		interviewRootRoute.Post("start", controller.StartInterview)
		interviewRootRoute.Post(":id/answer", controller.SubmitAnswer)
		interviewRootRoute.Post(":id/cancel", controller.CancelInterview)
		interviewRootRoute.Get(":id/analysis", controller.GetAnalysis)
		interviewRootRoute.Get(":id/audio/:number", controller.GetAnswerAudio)
		interviewRootRoute.Get(":id/report/xlsx", controller.ExportReportXlsx)
		interviewRootRoute.Get(":id/report/pdf", controller.ExportReportPdf)
	})
}

// @Summary Запустить интервью
// @Tags Интервью
// @Description Создать сессию интервью и запустить генерацию вопросов
// @Param	body	body	interviewapimodels.StartInterviewRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=interviewapimodels.StartInterviewResponse}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/start [post]
func (c *interviewApiController) StartInterview(ctx *fiber.Ctx) error {
	var payload interviewapimodels.StartInterviewRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	sessionID, err := interviewhandler.Instance.StartInterview(payload)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	resp := interviewapimodels.StartInterviewResponse{SessionID: sessionID}
	return ctx.Status(fiber.StatusCreated).JSON(apimodels.NewResponse(resp))
}

// @Summary Отправить ответ на текущий вопрос
// @Tags Интервью
// @Description Принять текстовый или аудио ответ на ожидающий вопрос
// @Param   id		path    string 	true 	"ID сессии"
// @Param	body	body	interviewapimodels.SubmitAnswerRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=interviewapimodels.SubmitAnswerResponse}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/answer [post]
func (c *interviewApiController) SubmitAnswer(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload interviewapimodels.SubmitAnswerRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	resp, err := interviewhandler.Instance.SubmitAnswer(sessionID, payload)
	if err != nil {
		return c.sendInterviewError(ctx, err, "Ошибка приема ответа")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Отменить интервью
// @Tags Интервью
// @Description Досрочно завершить интервью без оценки
// @Param   id		path    string 	true 	"ID сессии"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/cancel [post]
func (c *interviewApiController) CancelInterview(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = interviewhandler.Instance.CancelInterview(sessionID); err != nil {
		return c.sendInterviewError(ctx, err, "Ошибка отмены интервью")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Получить результат интервью
// @Tags Интервью
// @Description Оценка кандидата и обновленное портфолио по завершенному интервью
// @Param   id		path    string 	true 	"ID сессии"
// @Success 200 {object} apimodels.Response{data=interviewapimodels.AnalysisResponse}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/analysis [get]
func (c *interviewApiController) GetAnalysis(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	resp, err := interviewhandler.Instance.GetAnalysis(sessionID)
	if err != nil {
		return c.sendInterviewError(ctx, err, "Ошибка получения результата интервью")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Скачать аудио ответа
// @Tags Интервью
// @Description Аудио ответа кандидата на вопрос из архива хранилища
// @Param   id		path    string 	true 	"ID сессии"
// @Param   number	path    int 	true 	"Номер вопроса"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/audio/{number} [get]
func (c *interviewApiController) GetAnswerAudio(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	number, err := ctx.ParamsInt("number")
	if err != nil || number < 1 {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError("некорректный номер вопроса"))
	}
	audio, err := interviewhandler.Instance.GetAnswerAudio(sessionID, number)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError("аудио ответа не найдено"))
	}
	ctx.Set("Content-Type", "audio/wav")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="answer-%v.wav"`, number))
	return ctx.Send(audio)
}

// @Summary Выгрузить отчет в Excel
// @Tags Интервью
// @Description Расшифровка и оценка завершенного интервью в xlsx
// @Param   id		path    string 	true 	"ID сессии"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/report/xlsx [get]
func (c *interviewApiController) ExportReportXlsx(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	report, err := interviewhandler.Instance.GetReport(sessionID)
	if err != nil {
		return c.sendInterviewError(ctx, err, "Ошибка получения данных интервью для выгрузки в Excel")
	}
	data, err := xlsexport.Instance.ExportInterviewReport(report)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка выгрузки отчета в Excel")
	}
	fileName := fmt.Sprintf("interview-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set("Content-Type", "application/vnd.ms-excel")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

// @Summary Выгрузить отчет в PDF
// @Tags Интервью
// @Description Расшифровка и оценка завершенного интервью в pdf
// @Param   id		path    string 	true 	"ID сессии"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/interview/{id}/report/pdf [get]
func (c *interviewApiController) ExportReportPdf(ctx *fiber.Ctx) error {
	sessionID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	report, err := interviewhandler.Instance.GetReport(sessionID)
	if err != nil {
		return c.sendInterviewError(ctx, err, "Ошибка получения данных интервью для выгрузки в PDF")
	}
	pdfFile, err := pdfexport.GenerateInterviewReport(report)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка выгрузки отчета в PDF")
	}
	fileName := fmt.Sprintf("interview-%v.pdf", time.Now().Format("20060102-150405"))
	ctx.Set("Content-Type", "application/pdf")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.Send(pdfFile)
}

// sendInterviewError транслирует ошибки машины состояний в коды http
func (c *interviewApiController) sendInterviewError(ctx *fiber.Ctx, err error, hMsg string) error {
	switch {
	case errors.Is(err, interviewhandler.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(err.Error()))
	case errors.Is(err, interviewsession.ErrNotWaiting), errors.Is(err, interviewsession.ErrFinished):
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError(err.Error()))
	}
	return c.SendError(ctx, c.GetLogger(ctx), err, hMsg)
}
