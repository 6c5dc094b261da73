package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/bootstrap"
	"github.com/benbeisheim/chessmcts-backend/internal/config"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load-config")
	}
	bootstrap.SetupLogging(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eval, err := bootstrap.NewEvaluator(cfg.Evaluator)
	if err != nil {
		log.Fatal().Err(err).Msg("load-evaluator")
	}
	learning, err := bootstrap.NewLearning(ctx, *cfg, eval)
	if err != nil {
		log.Fatal().Err(err).Msg("start-learning")
	}
	defer learning.Close()
	go learning.Learner.Run(ctx)

	searchOpts, budget := bootstrap.SearchOptions(cfg.Search)
	sh := &shell{
		games: service.NewGameManager(service.ManagerOptions{
			Search:        searchOpts,
			Budget:        budget,
			Evaluator:     bootstrap.SearchEvaluator(eval),
			Recorder:      learning.Learner,
			ClockTime:     cfg.Server.ClockTime,
			EngineTimeout: cfg.Server.EngineTimeout,
		}),
		learner: learning.Learner,
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mchess>\033[0m ",
		HistoryFile:     "/tmp/chessmcts-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("readline")
	}
	defer l.Close()
	usage(l.Stdout())

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return
			}
			continue
		} else if err == io.EOF {
			return
		}
		err = sh.execute(ctx, strings.TrimSpace(line), l.Stdout())
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintln(l.Stderr(), "error:", err)
		}
	}
}
