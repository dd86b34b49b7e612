package app

import (
	"context"

	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/infra/logger"
)

type HistoryStore interface {
	// This allows the engine and api to record runs without importing store
	CreateRun(ctx context.Context, rec *domain.RunRecord) error
	FinishRun(ctx context.Context, rec *domain.RunRecord) error
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// Context holds the core environment and shared resources for segfetch.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// History is optional; runs are not recorded when it is nil.
	History HistoryStore
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
