// Package server initializes and runs the application: it builds the
// configured storage backend, bootstraps the first administrator account if
// none exists, and serves the HTTP API until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/auth"
	"github.com/modhost/backend/internal/server/config"
	"github.com/modhost/backend/internal/server/models"
	"github.com/modhost/backend/internal/server/repositories/accounts"
	"github.com/modhost/backend/internal/server/services"
	"github.com/modhost/backend/internal/server/storage"
	"github.com/modhost/backend/internal/server/web"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	provider *storage.Provider
	handler  http.Handler
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	provider := storage.NewProvider(c, logger)

	ctx := context.Background()
	accountRepo, err := provider.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	projectRepo, err := provider.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	teamRepo, err := provider.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	sessionRepo, err := provider.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	sessionSvc := services.NewSessionService(sessionRepo, c.SessionTTL, c.RememberTTL, logger)
	integritySvc := services.NewIntegrityService(accountRepo, teamRepo, logger)

	app := &App{
		config:   c,
		logger:   logger,
		provider: provider,
		handler:  web.NewHandler(logger, accountRepo, projectRepo, teamRepo, sessionSvc, integritySvc).Routes(),
	}

	if err := app.bootstrapAdmin(ctx, accountRepo, sessionSvc); err != nil {
		return nil, fmt.Errorf("admin bootstrap error: %w", err)
	}

	return app, nil
}

// bootstrapAdmin synthesizes the first administrator account when the
// backend holds none, and prints its generated credentials and permanent
// token exactly once. This is the only place a plaintext credential is ever
// written out.
func (app *App) bootstrapAdmin(ctx context.Context, repo accounts.Repository, sessionSvc *services.SessionService) error {
	if repo.HasAdminAccount(ctx) {
		return nil
	}

	username, err := common.MakeRandAlphanumericString(12)
	if err != nil {
		return err
	}
	password, err := common.MakeRandAlphanumericString(24)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := common.NowMillis()
	admin := models.Account{
		ID:           uuid.NewString(),
		Email:        username + "@localhost",
		Username:     username,
		PasswordHash: hash,
		Admin:        true,
		Permissions:  []string{"admin"},
		Projects:     []string{},
		Teams:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !repo.Create(ctx, admin) {
		return errors.New("admin account not created")
	}

	token, err := sessionSvc.CreatePermanentToken(ctx, admin.ID)
	if err != nil {
		return err
	}

	fmt.Println("==============================================================")
	fmt.Println(" FIRST START: administrator account created")
	fmt.Printf("   username: %s\n", admin.Username)
	fmt.Printf("   password: %s\n", password)
	fmt.Printf("   api token: %s\n", token.Token)
	fmt.Println(" Store these now; they will not be shown again.")
	fmt.Println("==============================================================")

	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.ListenAddr)

	app.initSignalHandler(cancelFunc)

	server := &http.Server{
		Addr:    app.config.ListenAddr,
		Handler: app.handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "server shutdown error", "error", err)
	}
	app.provider.Close()
}
