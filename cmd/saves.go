package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdungeon/internal/ui/components"
	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage saved runs",
}

var savesListCmd = &cobra.Command{
	Use:   "list <material>",
	Short: "List save slots for a material",
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

		slots, err := a.manager.ListSaves(cmd.Context(), player, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.SavesView(slots))
		return nil
	},
}

var savesLoadCmd = &cobra.Command{
	Use:   "load <save-id>",
	Short: "Restore a save as the active run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.manager.LoadSave(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Correct.Render("Save restored."))
		width, _ := cmd.Flags().GetInt("width")
		fmt.Fprintln(out, components.SessionView(s, components.ContentWidth(width)))
		fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("Continue with `quizdungeon play %s --player %s`.", s.MaterialID, s.PlayerID)))
		return nil
	},
}

var savesDeleteCmd = &cobra.Command{
	Use:   "delete <save-id>",
	Short: "Delete a save slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.manager.DeleteSave(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
		return nil
	},
}

func init() {
	savesLoadCmd.Flags().Int("width", 80, "Terminal width used for layout")
	savesCmd.AddCommand(savesListCmd, savesLoadCmd, savesDeleteCmd)
}
