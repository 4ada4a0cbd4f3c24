package handler

// OpenAccountRequest is the wire shape of POST /v1/accounts. Amounts
// arrive as decimal strings (not JSON numbers) so money.New never loses
// precision parsing them, per spec.md §6's "at least 4 fractional digits".
type OpenAccountRequest struct {
	AccountID      string `json:"account_id" validate:"required"`
	Holder         string `json:"holder" validate:"required"`
	AccountType    string `json:"account_type" validate:"required,oneof=checking savings"`
	OpeningBalance string `json:"opening_balance" validate:"required"`
}

// AmountRequest is shared by POST .../deposit and POST .../withdraw.
type AmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id" validate:"required"`
	ToAccountID   string `json:"to_account_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
}
