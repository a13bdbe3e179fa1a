package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <material>",
	Short: "Reset your statistics for a material",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		player, err := playerFlag(cmd)
		if err != nil {
			return err
		}
		material := args[0]
		yes, _ := cmd.Flags().GetBool("yes")
		withSessions, _ := cmd.Flags().GetBool("sessions")

		if !yes {
			what := "statistics"
			if withSessions {
				what = "statistics, runs and saves"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delete all %s for %s in %s? [y/N] ", what, player, material)
			if !confirmed(bufio.NewScanner(cmd.InOrStdin())) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.manager.ResetStats(ctx, player, material); err != nil {
			return err
		}
		if withSessions {
			if err := a.store.Sessions().DeletePair(ctx, player, material); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reset", material, "for", player)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	resetCmd.Flags().Bool("sessions", false, "Also delete runs and save slots")
}

func confirmed(in *bufio.Scanner) bool {
	if !in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
