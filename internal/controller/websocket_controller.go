package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/middleware"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
	"github.com/benbeisheim/chessmcts-backend/internal/ws"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// HandleConnection serves one websocket until the client goes away. State
// updates reach the client through the session's broadcast.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)
	logger := log.With().Str("game-id", gameID).Str("player-id", playerID).Logger()
	// Broadcasts from other goroutines share this writer.
	conn := service.NewSafeConn(c)

	if err := wsc.gameService.RegisterConnection(gameID, playerID, conn); err != nil {
		logger.Warn().Err(err).Msg("register-connection-failed")
		conn.WriteJSON(ws.NewError(err))
		conn.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, conn)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Msg("websocket-read-ended")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug().Err(err).Msg("websocket-parse-error")
			conn.WriteJSON(ws.NewError(err))
			continue
		}
		if err := wsc.handleMessage(gameID, msg); err != nil {
			logger.Debug().Err(err).Str("type", string(msg.Type)).Msg("websocket-message-rejected")
			conn.WriteJSON(ws.NewError(err))
		}
	}
}

func (wsc *WebSocketController) handleMessage(gameID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move service.MoveRequest
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return err
		}
		_, err := wsc.gameService.HandleMove(context.Background(), gameID, move)
		return err
	case ws.MessageTypeUndo:
		_, err := wsc.gameService.Undo(gameID)
		return err
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}
