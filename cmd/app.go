package cmd

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/config"
	"github.com/abhisek/quizdungeon/internal/logger"
	"github.com/abhisek/quizdungeon/internal/session"
	"github.com/abhisek/quizdungeon/internal/stats"
	"github.com/abhisek/quizdungeon/internal/store"
)

// app holds the dependencies shared by every command.
type app struct {
	loader  *config.Loader
	log     *zap.Logger
	store   *store.Store
	manager *session.Manager
}

// openApp loads configuration, opens the store and builds the session
// manager. quiet keeps console logging at warn so it does not interleave
// with interactive output.
func openApp(cmd *cobra.Command, quiet bool) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	loader, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := loader.Config()

	logCfg := cfg.Log
	if quiet && logCfg.Output == "stdout" && logger.ParseLevel(logCfg.Level) < zap.WarnLevel {
		logCfg.Level = "warn"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cat := catalog.Default()
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		if cat, err = loadCatalog(p); err != nil {
			st.Close()
			return nil, err
		}
	}

	sessions := st.Sessions()
	mgr, err := session.NewManager(session.Deps{
		Rules:   cfg.Rules,
		Catalog: cat,
		Pool:    st.Questions(),
		Store:   sessions,
		Saves:   sessions,
		Stats:   stats.NewAggregator(st.Stats()),
		Logger:  logger.Module(log, cfg.Log, "session"),
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	log.Debug("app ready", zap.String("db", dbPath), zap.String("config", loader.File()))
	return &app{loader: loader, log: log, store: st, manager: mgr}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	a.store.Close()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	cat, err := catalog.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

func defaultPlayer() string {
	if p := os.Getenv("QUIZDUNGEON_PLAYER"); p != "" {
		return p
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "player"
}

func playerFlag(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("player")
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("--player must not be empty")
	}
	return p, nil
}
