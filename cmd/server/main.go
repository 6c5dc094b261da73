package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/benbeisheim/chessmcts-backend/internal/bootstrap"
	"github.com/benbeisheim/chessmcts-backend/internal/config"
	"github.com/benbeisheim/chessmcts-backend/internal/controller"
	"github.com/benbeisheim/chessmcts-backend/internal/middleware"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
)

const GracefulShutdownTimeout = 20 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load-config")
	}
	bootstrap.SetupLogging(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eval, err := bootstrap.NewEvaluator(cfg.Evaluator)
	if err != nil {
		log.Fatal().Err(err).Str("kind", cfg.Evaluator.Kind).Msg("load-evaluator")
	}
	learning, err := bootstrap.NewLearning(ctx, *cfg, eval)
	if err != nil {
		log.Fatal().Err(err).Msg("start-learning")
	}
	defer learning.Close()

	searchOpts, budget := bootstrap.SearchOptions(cfg.Search)
	gameManager := service.NewGameManager(service.ManagerOptions{
		Search:        searchOpts,
		Budget:        budget,
		Evaluator:     bootstrap.SearchEvaluator(eval),
		Recorder:      learning.Learner,
		ClockTime:     cfg.Server.ClockTime,
		EngineTimeout: cfg.Server.EngineTimeout,
	})
	gameService := service.NewGameService(gameManager, learning.Learner)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(middleware.RequestLogger())
	controller.SetupRoutes(app, gameService, strings.Split(cfg.Server.AllowOrigins, ","))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		return app.Listen(cfg.Server.Addr)
	})
	g.Go(func() error {
		return learning.Learner.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting-down")
		return app.ShutdownWithTimeout(GracefulShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server-exited")
	}
}
