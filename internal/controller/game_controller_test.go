package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benbeisheim/chessmcts-backend/internal/mcts"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
	"github.com/benbeisheim/chessmcts-backend/internal/training"
)

type staticStats struct{}

func (staticStats) Statistics(context.Context) (training.Stats, error) {
	return training.Stats{GamesStored: 3, SessionsRun: 1, AverageGameLength: 42}, nil
}

func newTestApp(stats service.StatsSource) *fiber.App {
	gm := service.NewGameManager(service.ManagerOptions{
		Search: mcts.Options{Seed: 7, MaxNodes: 2000},
		Budget: mcts.Budget{Simulations: 20},
	})
	app := fiber.New()
	SetupRoutes(app, service.NewGameService(gm, stats), nil)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-Player-ID", "tester")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createGame(t *testing.T, app *fiber.App, body string) string {
	t.Helper()
	status, out := doJSON(t, app, http.MethodPost, "/api/game/create", body)
	require.Equal(t, fiber.StatusCreated, status, out)
	id, ok := out["game_id"].(string)
	require.True(t, ok)
	return id
}

func TestPlayerIDRequired(t *testing.T) {
	app := newTestApp(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/game/create", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/game/create?playerId=q", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestGameLifecycle(t *testing.T) {
	app := newTestApp(nil)
	id := createGame(t, app, "")

	status, out := doJSON(t, app, http.MethodGet, "/api/game/"+id, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "white", out["toMove"])
	assert.Equal(t, "playing", out["status"])

	status, out = doJSON(t, app, http.MethodGet, "/api/game/"+id+"/moves/g1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["legalMoves"], 2)

	status, out = doJSON(t, app, http.MethodPost, "/api/game/"+id+"/move", `{"from":"e2","to":"e4"}`)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Len(t, out["moveHistory"], 2)

	status, out = doJSON(t, app, http.MethodPost, "/api/game/"+id+"/move", `{"from":"e4","to":"e6"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, out["error"], "illegal move")

	status, out = doJSON(t, app, http.MethodPost, "/api/game/"+id+"/undo", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, out["moveHistory"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/game/"+id+"/undo", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestCreateGameAsBlack(t *testing.T) {
	app := newTestApp(nil)
	id := createGame(t, app, `{"color":"black"}`)
	status, out := doJSON(t, app, http.MethodGet, "/api/game/"+id, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "black", out["toMove"])
	assert.Equal(t, "black", out["humanColor"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/game/create", `{"color":"green"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUnknownGameAndBadSquare(t *testing.T) {
	app := newTestApp(nil)
	status, _ := doJSON(t, app, http.MethodGet, "/api/game/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	id := createGame(t, app, "")
	status, _ = doJSON(t, app, http.MethodGet, "/api/game/"+id+"/moves/z9", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestTrainingStats(t *testing.T) {
	status, _ := doJSON(t, newTestApp(nil), http.MethodGet, "/api/training/stats", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	status, out := doJSON(t, newTestApp(staticStats{}), http.MethodGet, "/api/training/stats", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 3.0, out["gamesStored"])
	assert.Equal(t, 42.0, out["averageGameLength"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(nil)
	req := httptest.NewRequest(http.MethodGet, "/ws/game/abc?playerId=p", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
