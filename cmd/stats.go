package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizdungeon/internal/stats"
	"github.com/abhisek/quizdungeon/internal/ui/components"
)

var statsCmd = &cobra.Command{
	Use:   "stats <material>",
	Short: "Show or export your study report",
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

		formatFlag, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		ctx := cmd.Context()

		if formatFlag == "" {
			r, err := a.manager.Report(ctx, player, args[0])
			if err != nil {
				return err
			}
			width, _ := cmd.Flags().GetInt("width")
			fmt.Fprintln(cmd.OutOrStdout(), components.ReportView(r, components.ContentWidth(width)))
			return nil
		}

		format, err := stats.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := a.manager.ExportStats(ctx, w, player, args[0], format); err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s report to %s\n", format, output)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("format", "", "Export format: csv, json or markdown")
	statsCmd.Flags().StringP("output", "o", "", "Write the export to a file instead of stdout")
	statsCmd.Flags().Int("width", 80, "Terminal width used for layout")
}
