package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/config"
	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
	"github.com/sotalab/labdesk-server/internal/store/sqlite"
	transporthttp "github.com/sotalab/labdesk-server/internal/transport/http"
)

// App wires together the store, the fan-out coordinators, and the transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	// Both chat domains feed the same per-user unread-total topic.
	totals := fanout.NewTotalsRegistry(logger)

	co := transporthttp.Coordinators{
		Private:    fanout.NewPrivateChat(totals, logger),
		Group:      fanout.NewGroupChat(totals, logger),
		Presence:   fanout.NewPresence(logger),
		Attendance: fanout.NewAttendance(logger),
		Board:      fanout.NewBoard(logger),
		Door:       fanout.NewDoor(logger),
		Seat:       fanout.NewSeat(logger),
		Meeting:    fanout.NewMeeting(logger),
	}

	server := transporthttp.NewServer(st, co, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
