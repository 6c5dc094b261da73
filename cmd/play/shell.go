package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
	"github.com/benbeisheim/chessmcts-backend/internal/training"
)

var errQuit = errors.New("quit")

// learningLoop is the part of the learner the shell drives directly.
type learningLoop interface {
	Statistics(ctx context.Context) (training.Stats, error)
	GameLengths(ctx context.Context) ([]float64, error)
	RunSession(ctx context.Context) error
}

type shell struct {
	games   *service.GameManager
	learner learningLoop
	gameID  string
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "new [white|black] - start a game, playing the given side (white by default)\n")
	io.WriteString(w, "move <uci> - play a move such as e2e4 or e7e8n\n")
	io.WriteString(w, "undo - take back your last move and the engine's reply\n")
	io.WriteString(w, "moves <square> - list where the piece on square can go\n")
	io.WriteString(w, "fen - print the position as FEN\n")
	io.WriteString(w, "board - draw the board\n")
	io.WriteString(w, "stats - show learning statistics and a game length histogram\n")
	io.WriteString(w, "train - run a training session now\n")
	io.WriteString(w, "exit - quit\n")
}

func (sh *shell) execute(ctx context.Context, line string, w io.Writer) error {
	fields, err := shellquote.Split(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "exit", "bye":
		return errQuit
	case "help":
		usage(w)
		return nil
	case "new":
		return sh.newGame(ctx, args, w)
	case "stats":
		return sh.stats(ctx, w)
	case "train":
		if err := sh.learner.RunSession(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "training session done")
		return nil
	}

	if sh.gameID == "" {
		return errors.New("no game in progress; use new")
	}
	switch cmd {
	case "move":
		if len(args) != 1 {
			return errors.New("usage: move <uci>")
		}
		from, to, promo, err := model.ParseUCI(args[0])
		if err != nil {
			return err
		}
		view, err := sh.games.ApplyMove(ctx, sh.gameID, from, to, promo)
		if err != nil {
			return err
		}
		showView(w, view)
	case "undo":
		view, err := sh.games.UndoLastMove(sh.gameID)
		if err != nil {
			return err
		}
		showView(w, view)
	case "moves":
		if len(args) != 1 {
			return errors.New("usage: moves <square>")
		}
		from, err := model.ParseSquare(args[0])
		if err != nil {
			return err
		}
		dests, err := sh.games.LegalMoves(sh.gameID, from)
		if err != nil {
			return err
		}
		names := make([]string, len(dests))
		for i, d := range dests {
			names[i] = d.String()
		}
		fmt.Fprintln(w, strings.Join(names, " "))
	case "fen":
		view, err := sh.games.State(sh.gameID)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, view.FEN)
	case "board":
		view, err := sh.games.State(sh.gameID)
		if err != nil {
			return err
		}
		showView(w, view)
	default:
		return fmt.Errorf("unknown command %q; try help", cmd)
	}
	return nil
}

func (sh *shell) newGame(ctx context.Context, args []string, w io.Writer) error {
	color := model.White
	if len(args) > 0 {
		c, err := model.ParseColor(args[0])
		if err != nil {
			return err
		}
		color = c
	}
	if sh.gameID != "" {
		sh.games.RemoveGame(sh.gameID)
	}
	id := uuid.New().String()
	view, err := sh.games.CreateGame(ctx, id, color)
	if err != nil {
		return err
	}
	sh.gameID = id
	showView(w, view)
	return nil
}

func (sh *shell) stats(ctx context.Context, w io.Writer) error {
	st, err := sh.learner.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "games stored:        %d\n", st.GamesStored)
	fmt.Fprintf(w, "training sessions:   %d\n", st.SessionsRun)
	if !st.LastSessionTime.IsZero() {
		fmt.Fprintf(w, "last session:        %s\n", st.LastSessionTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "average game length: %.1f plies\n", st.AverageGameLength)

	lengths, err := sh.learner.GameLengths(ctx)
	if err != nil {
		return err
	}
	if len(lengths) > 1 {
		fmt.Fprintln(w, "game lengths:")
		return histogram.Fprint(w, histogram.Hist(10, lengths), histogram.Linear(40))
	}
	return nil
}

func showView(w io.Writer, v service.GameView) {
	fmt.Fprintln(w, v.Board.String())
	if len(v.MoveHistory) > 0 {
		fmt.Fprintln(w, strings.Join(numbered(v.MoveHistory), " "))
	}
	switch {
	case v.DrawReason != model.NoDraw:
		fmt.Fprintf(w, "game over: draw by %s\n", v.DrawReason)
	case v.Resolve != nil && *v.Resolve == "draw":
		fmt.Fprintf(w, "game over: %s\n", v.Status)
	case v.Resolve != nil:
		fmt.Fprintf(w, "game over: %s, %s wins\n", v.Status, *v.Resolve)
	case v.IsCheck:
		fmt.Fprintf(w, "%s to move, in check\n", v.ToMove)
	default:
		fmt.Fprintf(w, "%s to move\n", v.ToMove)
	}
}

// numbered prefixes move pairs with their move numbers: "1. e4 e5 2. Nf3".
func numbered(san []string) []string {
	out := make([]string, 0, len(san)+len(san)/2+1)
	for i, m := range san {
		if i%2 == 0 {
			out = append(out, fmt.Sprintf("%d.", i/2+1))
		}
		out = append(out, m)
	}
	return out
}
