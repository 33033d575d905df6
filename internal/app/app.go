package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"Mansoor88-6/pulse-tracker/internal/analytics"
	"Mansoor88-6/pulse-tracker/internal/clock"
	"Mansoor88-6/pulse-tracker/internal/config"
	"Mansoor88-6/pulse-tracker/internal/database"
	"Mansoor88-6/pulse-tracker/internal/handler"
	"Mansoor88-6/pulse-tracker/internal/repository"
	"Mansoor88-6/pulse-tracker/internal/router"
	"Mansoor88-6/pulse-tracker/internal/service"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// App owns the database, the services built on it and the HTTP handler.
type App struct {
	DB        *database.DB
	Pulses    *service.PulseService
	Projects  *service.ProjectService
	Analytics *analytics.Service
	Handler   http.Handler

	logger   *zap.Logger
	lockFile *flock.Flock
}

// New locks the data directory, opens and migrates the database and wires
// the services. clk may be nil for the system clock.
func New(cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*App, error) {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfg.StoragePath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{logger: logger}
	if err := a.acquireLock(dataDir); err != nil {
		return nil, err
	}

	db, err := database.New(cfg.StoragePath, logger)
	if err != nil {
		a.releaseLock()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	pulseRepo := repository.NewPulseRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	limits := service.PageLimits{Default: cfg.Pagination.DefaultLimit, Max: cfg.Pagination.MaxLimit}
	a.Pulses = service.NewPulseService(pulseRepo, projectRepo, clk, limits, logger)
	a.Projects = service.NewProjectService(projectRepo, clk, logger)
	a.Analytics = analytics.NewService(pulseRepo, projectRepo, clk, loc, logger)

	a.Handler = router.New(router.Handlers{
		Pulses:    handler.NewPulseHandler(a.Pulses, loc, logger),
		Projects:  handler.NewProjectHandler(a.Projects, logger),
		Analytics: handler.NewAnalyticsHandler(a.Analytics, logger),
	}, logger)

	return a, nil
}

// acquireLock takes an exclusive lock so only one process owns the database.
func (a *App) acquireLock(dataDir string) error {
	a.lockFile = flock.New(filepath.Join(dataDir, "pulse.lock"))

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another pulse process is already using %s", dataDir)
	}
	return nil
}

func (a *App) releaseLock() error {
	if a.lockFile == nil {
		return nil
	}
	if err := a.lockFile.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Close closes the database and releases the data directory lock.
func (a *App) Close() error {
	var err error
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	err = multierr.Append(err, a.releaseLock())
	return err
}
