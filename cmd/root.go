package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/quizdungeon/internal/config"
	"github.com/abhisek/quizdungeon/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "quizdungeon",
	Short:         "Quiz battle roguelike for study material",
	Long:          "Quizdungeon turns a question bank into a dungeon crawl: answer correctly to hit enemies, answer wrong and they hit back.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZDUNGEON_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringP("player", "p", defaultPlayer(), "Player id")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a YAML powerup and enemy catalog")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured store path, then QUIZDUNGEON_DB, then the XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}
