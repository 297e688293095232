// Package server wires the development backend together: seeded accounts,
// refresh token storage, fixture procedures and the HTTP API.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
	"github.com/dmitrijs2005/eumgrid/internal/server/httpapi"
	"github.com/dmitrijs2005/eumgrid/internal/server/procedures"
	"github.com/dmitrijs2005/eumgrid/internal/server/refreshtokens"
	"github.com/dmitrijs2005/eumgrid/internal/server/users"
	"golang.org/x/crypto/bcrypt"
)

const purgeInterval = time.Minute

type App struct {
	config        *config.Config
	logger        logging.Logger
	userService   *users.Service
	refreshTokens *refreshtokens.MemoryRepository
	httpServer    *httpapi.HTTPServer
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	accounts := users.DefaultAccounts
	if c.UsersFile != "" {
		var err error
		if accounts, err = users.ReadAccounts(c.UsersFile); err != nil {
			return nil, fmt.Errorf("users file: %w", err)
		}
	}

	repo := users.NewMemoryRepository()
	if err := users.Seed(context.Background(), repo, accounts, bcrypt.DefaultCost); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}

	rt := refreshtokens.NewMemoryRepository()
	us := users.NewService(repo, rt, c)
	hs := httpapi.NewHTTPServer(c, logger, us, procedures.Fixtures(nil), metrics.New())

	return &App{config: c, logger: logger, userService: us, refreshTokens: rt, httpServer: hs}, nil
}

func (app *App) purgeRefreshTokens(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.refreshTokens.Purge(ctx); n > 0 {
				app.logger.Debug(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

// Run blocks until ctx is cancelled or the HTTP server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting dev server...", "addr", app.config.Addr, "base_path", app.config.BasePath)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.purgeRefreshTokens(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			runErr = err
		}
		cancelFunc()
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "Dev server stopped")
	return runErr
}
