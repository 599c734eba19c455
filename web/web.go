// Package web serves the read-only HTTP API over the reconciliation engine.
package web

import (
	"log/slog"
	"net/http"

	"github.com/screwyprof/stakecart/pkg/logger"
	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/web/handler"
)

// Engine is the part of the engine the API reads from
type Engine interface {
	handler.StateReader
	handler.AccountReader
}

// NewHandler routes the API and wraps it with request logging.
// finder may be nil when the journal is disabled.
func NewHandler(engine Engine, finder handler.HistoryFinder, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	handler.NewStakingGetState(engine).AddRoutes(mux)
	handler.NewStakingGetHistory(finder, engine).AddRoutes(mux)

	return logger.NewMiddleware(log)(mux)
}

var _ Engine = (*staking.Engine)(nil)
