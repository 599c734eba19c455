package api

// HistoryRequest represents the query parameters for GET /delegations/history
type HistoryRequest struct {
	Account string `query:"account"` // Optional, defaults to the active account
	Limit   int    `query:"limit"`   // Number of snapshots (default: 10, max: 100)
}

// CartEntry represents a delegation being edited
type CartEntry struct {
	Validator string `json:"validator"`
	Moniker   string `json:"moniker"`
	Amount    string `json:"amount"`
}

// Delegation represents a confirmed delegation
type Delegation struct {
	Validator string `json:"validator"`
	Shares    string `json:"shares"`
}

// Unbonding represents a pending unbonding entry
type Unbonding struct {
	Validator string `json:"validator"`
	Amount    string `json:"amount"`
	Denom     string `json:"denom"`
	MinTime   string `json:"min_time"`
}

// StateResponse represents the API response format for GET /delegations
type StateResponse struct {
	Account      string       `json:"account"`
	Loading      bool         `json:"loading"`
	LoadedOnce   bool         `json:"loaded_once"`
	TotalBalance string       `json:"total_balance"`
	Cart         []CartEntry  `json:"cart"`
	Committed    []Delegation `json:"committed"`
	Unbonding    []Unbonding  `json:"unbonding"`
}

// Snapshot represents one journaled reconciliation
type Snapshot struct {
	Generation uint64       `json:"generation"`
	RecordedAt string       `json:"recorded_at"`
	Committed  []Delegation `json:"committed"`
	Unbonding  []Unbonding  `json:"unbonding"`
}

// HistoryResponse represents the API response format for GET /delegations/history
type HistoryResponse struct {
	Account string     `json:"account"`
	Data    []Snapshot `json:"data"`
}
