package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// Register mounts the REST routes under router.
func (gc *GameController) Register(router fiber.Router) {
	games := router.Group("/game")
	games.Post("/create", gc.CreateGame)
	games.Get("/:gameId", gc.GetGameState)
	games.Get("/:gameId/moves/:square", gc.GetLegalMoves)
	games.Post("/:gameId/move", gc.MakeMove)
	games.Post("/:gameId/undo", gc.Undo)
	router.Get("/training/stats", gc.GetTrainingStats)
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrIllegalMove),
		errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrGameOver),
		errors.Is(err, service.ErrNothingToUndo):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrTrainingDisabled):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request-failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

type createGameRequest struct {
	Color string `json:"color"`
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	color := model.White
	if req.Color != "" {
		parsed, err := model.ParseColor(req.Color)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		color = parsed
	}

	view, err := gc.gameService.CreateGame(c.UserContext(), color)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"game_id": view.ID,
		"state":   view,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	view, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) GetLegalMoves(c *fiber.Ctx) error {
	dests, err := gc.gameService.LegalMoves(c.Params("gameId"), c.Params("square"))
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return sendError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if dests == nil {
		dests = []model.Position{}
	}
	return c.JSON(fiber.Map{
		"legalMoves": dests,
	})
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	var req service.MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	view, err := gc.gameService.HandleMove(c.UserContext(), c.Params("gameId"), req)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) Undo(c *fiber.Ctx) error {
	view, err := gc.gameService.Undo(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) GetTrainingStats(c *fiber.Ctx) error {
	stats, err := gc.gameService.Statistics(c.UserContext())
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(stats)
}
