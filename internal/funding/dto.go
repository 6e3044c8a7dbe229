package funding

// DepositRequest tops up a wallet from the faucet.
type DepositRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// WithdrawRequest cashes out part of a wallet to an external destination.
type WithdrawRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
	ClientTxID  string `json:"client_tx_id"`
}

// FundingResponse is returned by both funding endpoints.
type FundingResponse struct {
	TransactionID   string `json:"transaction_id"`
	Status          string `json:"status"`
	WalletBalance   int64  `json:"wallet_balance"`
	SourceReference string `json:"source_reference"`
}
