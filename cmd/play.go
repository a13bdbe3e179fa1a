package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/session"
	"github.com/abhisek/quizdungeon/internal/ui/components"
	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

var playCmd = &cobra.Command{
	Use:   "play <material>",
	Short: "Play a dungeon run in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		player, err := playerFlag(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		width, _ := cmd.Flags().GetInt("width")
		g := &terminalGame{
			mgr:   a.manager,
			in:    bufio.NewScanner(cmd.InOrStdin()),
			out:   cmd.OutOrStdout(),
			width: components.ContentWidth(width),
		}
		return g.run(cmd.Context(), player, args[0])
	},
}

func init() {
	playCmd.Flags().Int("width", 80, "Terminal width used for layout")
}

const playHelp = `Answer with the option number or the answer text.
Commands:
  :use <powerup>   use a powerup from your inventory
  :save [label]    save the run
  :status          show the dungeon
  :abandon         give up this run
  :quit            leave, the run stays active
  :help            show this help`

// errQuit ends the loop without touching the session.
var errQuit = errors.New("quit")

// terminalGame is a line-oriented game loop over a session.Manager.
type terminalGame struct {
	mgr   *session.Manager
	in    *bufio.Scanner
	out   io.Writer
	width int
}

func (g *terminalGame) println(s string) {
	fmt.Fprintln(g.out, s)
}

func (g *terminalGame) run(ctx context.Context, player, material string) error {
	s, err := g.mgr.Status(ctx, player, material)
	if err != nil {
		return err
	}
	if s == nil {
		if s, err = g.mgr.Create(ctx, player, material); err != nil {
			if errors.Is(err, game.ErrNotEnoughQuestions) {
				return fmt.Errorf("%w; import some with `quizdungeon questions import %s <file>`", err, material)
			}
			return err
		}
		g.println(theme.Title.Render("A new dungeon opens: " + material))
	} else {
		g.println(theme.Title.Render("Resuming your run in " + material))
	}
	g.println(theme.Hint.Render("Type :help for commands."))
	g.println(components.SessionView(s, g.width))

	for {
		prompt, err := g.mgr.NextQuestion(ctx, s.ID)
		if errors.Is(err, game.ErrPoolExhausted) {
			g.println(theme.Hint.Render("No questions left for this material. Your run stays active."))
			return nil
		}
		if err != nil {
			return err
		}
		g.println(components.QuestionView(prompt, g.width))

		done, err := g.turn(ctx, s.ID, prompt)
		if errors.Is(err, errQuit) {
			g.println(theme.Hint.Render("See you later. Resume with the same command."))
			return nil
		}
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if s, err = g.mgr.Get(ctx, s.ID); err != nil {
			return err
		}
	}
}

// turn reads input until the prompt is answered. It reports whether the
// run has ended.
func (g *terminalGame) turn(ctx context.Context, id string, prompt *questions.Prompt) (bool, error) {
	for {
		fmt.Fprint(g.out, lipgloss.NewStyle().Foreground(theme.Accent).Render("> "))
		if !g.in.Scan() {
			if err := g.in.Err(); err != nil {
				return false, err
			}
			return false, errQuit
		}
		line := strings.TrimSpace(g.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			done, err := g.command(ctx, id, line)
			if err != nil || done {
				return done, err
			}
			continue
		}

		res, err := g.mgr.SubmitAnswer(ctx, id, prompt.ID, resolveChoice(line, prompt.Options))
		if err != nil {
			return false, err
		}
		g.println(components.ResultView(res))
		if res.Status.Terminated() {
			s, err := g.mgr.Get(ctx, id)
			if err != nil {
				return true, err
			}
			g.println(components.SessionView(s, g.width))
			return true, nil
		}
		if res.EnemyDefeated {
			s, err := g.mgr.Get(ctx, id)
			if err != nil {
				return false, err
			}
			g.println(components.SessionView(s, g.width))
		}
		return false, nil
	}
}

func (g *terminalGame) command(ctx context.Context, id, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "help", "h":
		g.println(playHelp)
	case "quit", "q":
		return false, errQuit
	case "status", "s":
		s, err := g.mgr.Get(ctx, id)
		if err != nil {
			return false, err
		}
		g.println(components.SessionView(s, g.width))
	case "use", "u":
		res, err := g.mgr.UsePowerup(ctx, id, arg)
		switch {
		case errors.Is(err, game.ErrPowerupNotOwned), errors.Is(err, game.ErrUnknownPowerup):
			g.println(theme.Incorrect.Render(fmt.Sprintf("You don't have %q.", arg)))
		case err != nil:
			return false, err
		default:
			g.println(components.PowerupView(res))
		}
	case "save":
		slot, err := g.mgr.Save(ctx, id, arg)
		if err != nil {
			return false, err
		}
		g.println(theme.Hint.Render(fmt.Sprintf("Saved %q (%s).", slot.Label, slot.ID)))
	case "abandon":
		if _, err := g.mgr.Abandon(ctx, id); err != nil {
			return false, err
		}
		g.println(theme.Defeat.Render("You flee the dungeon."))
		return true, nil
	default:
		g.println(theme.Hint.Render("Unknown command. Type :help."))
	}
	return false, nil
}

// resolveChoice maps an option number onto its text. Anything else is
// taken as a literal answer.
func resolveChoice(input string, options []string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return input
}
