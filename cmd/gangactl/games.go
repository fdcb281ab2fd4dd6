package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
)

var errQuit = errors.New("quit")

// prompter reads one trimmed answer per line. "q" or end of input ends the game.
type prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{out: cmd.OutOrStdout(), scanner: bufio.NewScanner(cmd.InOrStdin())}
}

func (p *prompter) ask() (string, error) {
	fmt.Fprint(p.out, "> ")
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	line := strings.TrimSpace(p.scanner.Text())
	if strings.EqualFold(line, "q") {
		return "", errQuit
	}
	return line, nil
}

func (c *cli) quizCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quiz",
		Short: "Play the Ganga quiz interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := newPrompter(cmd)

			state, err := svc.StartQuiz(ctx, id)
			if err != nil {
				return err
			}

			for state.Quiz.Phase != games.PhaseFinished {
				q := state.Quiz.Question
				fmt.Fprintf(out, "\nQuestion %d/%d: %s\n", state.Quiz.Index+1, state.Quiz.Total, q.Prompt)
				for i, opt := range q.Options {
					fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
				}

				line, err := in.ask()
				if errors.Is(err, errQuit) {
					fmt.Fprintln(out, "quiz abandoned")
					return nil
				}
				if err != nil {
					return err
				}
				choice, err := strconv.Atoi(line)
				if err != nil || choice < 1 || choice > len(q.Options) {
					fmt.Fprintf(out, "enter a number between 1 and %d\n", len(q.Options))
					continue
				}

				state, err = svc.AnswerQuiz(ctx, id, state.SessionID, choice-1)
				if err != nil {
					return err
				}
				if state.Outcome.Correct {
					fmt.Fprintln(out, "Correct!")
				} else if state.Quiz.CorrectOption != nil {
					fmt.Fprintf(out, "Not quite. The answer is %s.\n", q.Options[*state.Quiz.CorrectOption])
				}
				if state.Outcome.Explanation != "" {
					fmt.Fprintln(out, state.Outcome.Explanation)
				}
				printGameScore(out, state.Score)

				if state, err = svc.NextQuiz(ctx, id, state.SessionID); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "\nQuiz complete: %d/%d correct\n", state.Quiz.Correct, state.Quiz.Total)
			return nil
		},
	}
}

func (c *cli) trashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "Play the trash-sorting game interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := newPrompter(cmd)

			state, err := svc.StartTrash(ctx, id)
			if err != nil {
				return err
			}

			for state.Trash.Phase != games.PhaseFinished {
				view := state.Trash
				fmt.Fprintf(out, "\nRound %d/%d: where does %q go?\n", view.Round, view.Rounds, view.Item.Name)
				for i, bin := range view.Bins {
					fmt.Fprintf(out, "  %d) %s\n", i+1, bin.Label)
				}

				line, err := in.ask()
				if errors.Is(err, errQuit) {
					fmt.Fprintln(out, "game abandoned")
					return nil
				}
				if err != nil {
					return err
				}
				bin, ok := binFromInput(view.Bins, line)
				if !ok {
					fmt.Fprintf(out, "enter a bin number between 1 and %d\n", len(view.Bins))
					continue
				}

				state, err = svc.SortTrash(ctx, id, state.SessionID, bin)
				if err != nil {
					return err
				}
				if state.Outcome.Correct {
					fmt.Fprintf(out, "Correct! Streak %d\n", state.Trash.Streak)
				} else {
					fmt.Fprintln(out, state.Outcome.Explanation)
				}
				printGameScore(out, state.Score)

				if state, err = svc.NextTrash(ctx, id, state.SessionID); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "\nSorting complete: %d/%d correct, best streak %d\n",
				state.Trash.Correct, state.Trash.Rounds, state.Trash.BestStreak)
			return nil
		},
	}
}

// binFromInput accepts a 1-based bin number or a bin id.
func binFromInput(bins []games.Bin, line string) (string, bool) {
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(bins) {
			return "", false
		}
		return bins[n-1].ID, true
	}
	for _, b := range bins {
		if strings.EqualFold(b.ID, line) {
			return b.ID, true
		}
	}
	return "", false
}

func printGameScore(out io.Writer, score *progress.ScoreResult) {
	if score == nil || score.Unlocks.Delta == 0 {
		return
	}
	printScore(out, *score)
}
