package factory

import (
	"github.com/hasirciogluhq/sortbench/internal/codec"
	"github.com/hasirciogluhq/sortbench/internal/config"
	"github.com/hasirciogluhq/sortbench/internal/core"
	"github.com/hasirciogluhq/sortbench/internal/logger"
	"github.com/hasirciogluhq/sortbench/internal/session"
)

// HandlerFactory creates sort session handlers
type HandlerFactory struct {
	cfg *config.Config
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(cfg *config.Config) *HandlerFactory {
	return &HandlerFactory{cfg: cfg}
}

// Create creates a connection handler from the configured limits and timeouts
func (f *HandlerFactory) Create() core.ConnectionHandler {
	logger.Info("Creating sort session handler",
		"max_message_size", f.cfg.MaxMessageSize,
		"default_column", f.cfg.DefaultSortColumn,
		"read_timeout", f.cfg.ReadTimeout,
		"process_timeout", f.cfg.ProcessTimeout,
		"write_timeout", f.cfg.WriteTimeout)

	return &session.Handler{
		Codec:          codec.New(f.cfg.MaxMessageSize),
		DefaultColumn:  f.cfg.DefaultSortColumn,
		ReadTimeout:    f.cfg.ReadTimeout,
		ProcessTimeout: f.cfg.ProcessTimeout,
		WriteTimeout:   f.cfg.WriteTimeout,
	}
}
