package handler

import (
	"net/http"

	"github.com/screwyprof/stakecart/pkg/httpkit"
	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/web/handler/bind"
)

const GetStateRoute = http.MethodGet + " " + "/delegations"

// StateReader exposes the engine state for display
type StateReader interface {
	State() staking.State
}

type StakingGetState struct {
	reader StateReader
}

func NewStakingGetState(reader StateReader) *StakingGetState {
	return &StakingGetState{
		reader: reader,
	}
}

func (h *StakingGetState) AddRoutes(m *http.ServeMux) {
	m.Handle(GetStateRoute, httpkit.HandlerFunc(h.GetState))
}

func (h *StakingGetState) GetState(_ http.ResponseWriter, _ *http.Request) http.HandlerFunc {
	return httpkit.JSON(bind.GetStateResponse(h.reader.State()))
}
