package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/finance"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := newApp(ctx, cfg, appOptions{withDispatcher: true})
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, buildHandlers(ctx, app), app.Logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		app.Logger.Info("starting HTTP server", "address", addr, "storage", cfg.Storage.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("received signal, shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	app.Logger.Info("server stopped")
	return nil
}

func buildHandlers(ctx context.Context, app *App) rest.Handlers {
	checks := map[string]rest.Check{}
	if app.DB != nil {
		checks[app.Config.Storage.Driver] = app.DB.PingContext
	}

	h := rest.Handlers{
		Health:         rest.NewHealthHandler(checks),
		Auth:           auth.NewHandler(app.Auth),
		User:           user.NewHandler(app.Users, auth.UserIDFromContext),
		Request:        request.NewHandler(app.Requests, app.Formatter, app.Config.Attachments.MaxSizeBytes()),
		Approval:       approval.NewHandler(app.Approvals, app.Formatter),
		Finance:        finance.NewHandler(app.Exporter, nil),
		AllowedOrigins: app.Config.Server.AllowedOrigins,
	}
	if app.Dispatcher != nil {
		h.Finance.Resender = app.Dispatcher
	}

	spec, err := swagger.LoadSpec(ctx, app.Config.Server.OpenAPIPath)
	if err != nil {
		app.Logger.Warn("openapi document unavailable, swagger disabled", "path", app.Config.Server.OpenAPIPath, "error", err)
	} else {
		h.Spec = spec
	}
	return h
}

func init() {
	rootCmd.AddCommand(httpServerCmd)
}
