package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/screwyprof/stakecart/pkg/httpkit"
	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/web/api"
	"github.com/screwyprof/stakecart/web/handler/bind"
)

const GetHistoryRoute = http.MethodGet + " " + "/delegations/history"

// Sentinel errors
var (
	ErrQueryFailed     = errors.New("failed to query reconciliation history")
	ErrJournalDisabled = errors.New("reconciliation journal is disabled")
)

// HistoryFinder reads journaled snapshots, most recent first
type HistoryFinder interface {
	History(ctx context.Context, account string, limit int) ([]staking.Snapshot, error)
}

// AccountReader reports the account the engine is tracking
type AccountReader interface {
	Account() string
}

type StakingGetHistory struct {
	finder  HistoryFinder
	account AccountReader
}

// NewStakingGetHistory creates the history handler. A nil finder
// answers every request with 404.
func NewStakingGetHistory(finder HistoryFinder, account AccountReader) *StakingGetHistory {
	return &StakingGetHistory{
		finder:  finder,
		account: account,
	}
}

func (h *StakingGetHistory) AddRoutes(m *http.ServeMux) {
	m.Handle(GetHistoryRoute, httpkit.HandlerFunc(h.GetHistory))
}

func (h *StakingGetHistory) GetHistory(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	if h.finder == nil {
		return httpkit.JsonError(api.NotFound(ErrJournalDisabled))
	}

	req, err := bind.GetHistoryRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	account := req.Account
	if account == "" && h.account != nil {
		account = h.account.Account()
	}
	if account == "" {
		return httpkit.JsonError(api.BadRequest(staking.ErrNoAccount))
	}

	snapshots, err := h.finder.History(r.Context(), account, req.Limit)
	if err != nil {
		return httpkit.JsonError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	return httpkit.JSON(bind.GetHistoryResponse(account, snapshots))
}
