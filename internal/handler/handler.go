// Package handler wires gin HTTP routes to the command and query
// services, grounded on the teacher's account_handler.go /
// transaction_handler.go: bind the request, validate it, call the
// service, map its error to a status code.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/eventlog"
	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/middleware"
	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/eagleledger/ledger/internal/projection"
	"github.com/eagleledger/ledger/internal/query"
	"github.com/gin-gonic/gin"
)

// Commander is the subset of command.Service the HTTP ingress calls.
type Commander interface {
	OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (ledger.Account, error)
	Deposit(ctx context.Context, cmd cqrs.DepositCommand) (ledger.Account, error)
	Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.Account, error)
	CloseAccount(ctx context.Context, cmd cqrs.CloseAccountCommand) (ledger.Account, error)
	Transfer(ctx context.Context, cmd cqrs.TransferCommand) (from, to ledger.Account, err error)
}

// Querier is the subset of query.Service the HTTP ingress calls.
type Querier interface {
	GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*projection.AccountBalanceView, error)
	ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]projection.TransactionView, error)
}

type AccountHandler struct {
	commands Commander
	queries  Querier
}

func NewAccountHandler(commands Commander, queries Querier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := middleware.ValidateRequest(req); errs != nil {
		middleware.RespondWithValidationError(c, errs)
		return
	}
	amount, err := money.New(req.OpeningBalance)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid opening_balance")
		return
	}

	acct, err := h.commands.OpenAccount(c.Request.Context(), cqrs.OpenAccountCommand{
		AccountID:      req.AccountID,
		Holder:         req.Holder,
		AccountType:    req.AccountType,
		OpeningBalance: amount,
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAccountResponse(acct))
}

func (h *AccountHandler) Deposit(c *gin.Context) {
	accountID := c.Param("accountId")
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := middleware.ValidateRequest(req); errs != nil {
		middleware.RespondWithValidationError(c, errs)
		return
	}
	amount, err := money.New(req.Amount)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	acct, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	accountID := c.Param("accountId")
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := middleware.ValidateRequest(req); errs != nil {
		middleware.RespondWithValidationError(c, errs)
		return
	}
	amount, err := money.New(req.Amount)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	acct, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (h *AccountHandler) Close(c *gin.Context) {
	accountID := c.Param("accountId")
	acct, err := h.commands.CloseAccount(c.Request.Context(), cqrs.CloseAccountCommand{AccountID: accountID})
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (h *AccountHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := middleware.ValidateRequest(req); errs != nil {
		middleware.RespondWithValidationError(c, errs)
		return
	}
	amount, err := money.New(req.Amount)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	from, to, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		FromAccountID: req.FromAccountID, ToAccountID: req.ToAccountID, Amount: amount,
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": toAccountResponse(from), "to": toAccountResponse(to)})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{AccountID: accountID})
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch account")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) ListTransactions(c *gin.Context) {
	accountID := c.Param("accountId")
	txs, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{AccountID: accountID})
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// writeCommandError maps spec.md §7's error taxonomy to an HTTP status,
// surfacing DomainError/Conflict/TransportError to the caller verbatim
// rather than translating them into a generic 500.
func writeCommandError(c *gin.Context, err error) {
	var domainErr *ledger.DomainError
	switch {
	case errors.As(err, &domainErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "domain rule violated",
			"rule":    domainErr.Rule,
			"account": domainErr.Account,
			"details": domainErr.Details,
		})
	case errors.Is(err, eventlog.ErrConflict):
		middleware.RespondWithError(c, http.StatusConflict, "Concurrent modification, please retry")
	case errors.Is(err, eventlog.ErrTransport):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Event log unavailable")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal error")
	}
}

func toAccountResponse(acct ledger.Account) gin.H {
	return gin.H{
		"account_id": acct.ID,
		"holder":     acct.Holder,
		"type":       acct.Type,
		"balance":    acct.Balance,
		"status":     acct.Status,
		"version":    acct.Version,
		"created_at": acct.CreatedAt,
	}
}
