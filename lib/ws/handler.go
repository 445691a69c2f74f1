package ws

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	wsclient "visa-interview-backend/lib/ws/client"
	connectionhub "visa-interview-backend/lib/ws/hub/connection-hub"
)

func InitWs(app *fiber.App) {
	app.Use("", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/:session_id", websocket.New(sessionHandler))
}

// @Summary Пуши событий интервью
// @Tags Websocket События интервью
// @Description Пуши событий интервью
// @Param   session_id		path		string		true		"Идентификатор сессии"
// @Success 200 {object} wsmodels.ServerMessage
// @Failure 400
// @Failure 500
// @router /ws/{session_id} [get]
func sessionHandler(c *websocket.Conn) {
	sessionID := c.Params("session_id")
	client := wsclient.NewClient(sessionID, c)
	connectionhub.Instance.AddClient(sessionID, c)
	defer func() {
		connectionhub.Instance.DeleteClient(sessionID)
	}()
	client.Dispatch()
}
