package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/api"
	"github.com/abhisek/quizdungeon/internal/config"
	"github.com/abhisek/quizdungeon/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.loader.Config()
		server := cfg.Server
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			if server, err = overrideAddr(addr, server); err != nil {
				return err
			}
		}
		gin.SetMode(ginMode(server.Mode))

		if a.loader.File() != "" {
			a.loader.Watch(a.log, func(next *config.Config) {
				if err := a.manager.SetRules(next.Rules); err != nil {
					a.log.Warn("rules reload rejected", zap.Error(err))
				}
			})
		}

		router := api.NewRouter(a.manager, a.store.Questions(), logger.Module(a.log, cfg.Log, "api"))
		srv := &http.Server{
			Addr:         server.Addr(),
			Handler:      router.Handler(),
			ReadTimeout:  server.ReadTimeout,
			WriteTimeout: server.WriteTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// overrideAddr applies a host:port flag on top of the configured server.
func overrideAddr(addr string, srv config.ServerConfig) (config.ServerConfig, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return srv, fmt.Errorf("invalid --addr: %w", err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return srv, fmt.Errorf("invalid --addr port: %w", err)
	}
	if host != "" {
		srv.Host = host
	}
	srv.Port = n
	return srv, nil
}

// ginMode maps the configured mode onto one gin accepts.
func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address, e.g. :8080 (overrides server.host/server.port)")
}
