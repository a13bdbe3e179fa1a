package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question pool",
}

var questionsImportCmd = &cobra.Command{
	Use:   "import <material> <file>",
	Short: "Import questions for a material from a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		material, path := args[0], args[1]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open questions: %w", err)
		}
		defer f.Close()

		records, err := questions.Decode(f, material)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.store.Questions().Import(cmd.Context(), records)
		if err != nil {
			return err
		}
		a.log.Info("questions imported", zap.String("material_id", material), zap.Int("count", n), zap.String("file", path))
		fmt.Fprintln(cmd.OutOrStdout(), theme.Correct.Render(fmt.Sprintf("Imported %d questions into %s", n, material)))
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials and their question counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.store.Questions().Materials(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(counts) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No questions yet. Import some with `quizdungeon questions import`."))
			return nil
		}
		ids := make([]string, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "%s  %s\n", theme.Subtitle.Render(id), theme.Body.Render(fmt.Sprintf("%d questions", counts[id])))
		}
		return nil
	},
}

func init() {
	questionsCmd.AddCommand(questionsImportCmd, questionsListCmd)
}
