package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eagleledger/ledger/internal/cqrs"
	"github.com/eagleledger/ledger/internal/eventlog"
	"github.com/eagleledger/ledger/internal/ledger"
	"github.com/eagleledger/ledger/internal/platform/money"
	"github.com/eagleledger/ledger/internal/projection"
	"github.com/eagleledger/ledger/internal/query"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockCommander struct {
	openFn     func(context.Context, cqrs.OpenAccountCommand) (ledger.Account, error)
	depositFn  func(context.Context, cqrs.DepositCommand) (ledger.Account, error)
	withdrawFn func(context.Context, cqrs.WithdrawCommand) (ledger.Account, error)
	closeFn    func(context.Context, cqrs.CloseAccountCommand) (ledger.Account, error)
	transferFn func(context.Context, cqrs.TransferCommand) (ledger.Account, ledger.Account, error)
}

func (m *mockCommander) OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (ledger.Account, error) {
	if m.openFn != nil {
		return m.openFn(ctx, cmd)
	}
	return ledger.Account{}, fmt.Errorf("not configured")
}
func (m *mockCommander) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (ledger.Account, error) {
	if m.depositFn != nil {
		return m.depositFn(ctx, cmd)
	}
	return ledger.Account{}, fmt.Errorf("not configured")
}
func (m *mockCommander) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.Account, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, cmd)
	}
	return ledger.Account{}, fmt.Errorf("not configured")
}
func (m *mockCommander) CloseAccount(ctx context.Context, cmd cqrs.CloseAccountCommand) (ledger.Account, error) {
	if m.closeFn != nil {
		return m.closeFn(ctx, cmd)
	}
	return ledger.Account{}, fmt.Errorf("not configured")
}
func (m *mockCommander) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (ledger.Account, ledger.Account, error) {
	if m.transferFn != nil {
		return m.transferFn(ctx, cmd)
	}
	return ledger.Account{}, ledger.Account{}, fmt.Errorf("not configured")
}

type mockQuerier struct {
	getFn  func(context.Context, cqrs.GetAccountQuery) (*projection.AccountBalanceView, error)
	listFn func(context.Context, cqrs.ListTransactionsQuery) ([]projection.TransactionView, error)
}

func (m *mockQuerier) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*projection.AccountBalanceView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockQuerier) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]projection.TransactionView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTestRouter(cmds Commander, qrys Querier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAccountHandler(cmds, qrys)
	v1 := r.Group("/v1")
	v1.POST("/accounts", h.OpenAccount)
	v1.POST("/accounts/:accountId/deposit", h.Deposit)
	v1.POST("/accounts/:accountId/withdraw", h.Withdraw)
	v1.POST("/accounts/:accountId/close", h.Close)
	v1.POST("/transfers", h.Transfer)
	v1.GET("/accounts/:accountId", h.GetAccount)
	v1.GET("/accounts/:accountId/transactions", h.ListTransactions)
	return r
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testAccount(id string, balance string) ledger.Account {
	amt, _ := money.New(balance)
	return ledger.Account{ID: id, Holder: "Jane", Type: ledger.Checking, Balance: amt, Status: ledger.StatusActive, CreatedAt: time.Now(), Version: 1}
}

// ---- tests ----

func TestOpenAccount(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		openFn         func(context.Context, cqrs.OpenAccountCommand) (ledger.Account, error)
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]any{"account_id": "A", "holder": "Jane", "account_type": "checking", "opening_balance": "100.0000"},
			openFn:         func(ctx context.Context, cmd cqrs.OpenAccountCommand) (ledger.Account, error) { return testAccount("A", "100"), nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing fields",
			body:           map[string]any{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - invalid account type",
			body:           map[string]any{"account_id": "A", "holder": "Jane", "account_type": "business", "opening_balance": "0"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "domain error - already exists",
			body: map[string]any{"account_id": "A", "holder": "Jane", "account_type": "checking", "opening_balance": "0"},
			openFn: func(ctx context.Context, cmd cqrs.OpenAccountCommand) (ledger.Account, error) {
				return ledger.Account{}, &ledger.DomainError{Rule: ledger.RuleAccountAlreadyExists}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockCommander{openFn: tt.openFn}, &mockQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/accounts", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	depositFn := func(ctx context.Context, cmd cqrs.DepositCommand) (ledger.Account, error) {
		return testAccount(cmd.AccountID, "130"), nil
	}
	router := newTestRouter(&mockCommander{depositFn: depositFn}, &mockQuerier{})
	w := doRequest(router, http.MethodPost, "/v1/accounts/A/deposit", map[string]any{"amount": "30"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestWithdrawInsufficientFundsReturns422(t *testing.T) {
	withdrawFn := func(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.Account, error) {
		return ledger.Account{}, &ledger.DomainError{Rule: ledger.RuleInsufficientFunds, Account: cmd.AccountID}
	}
	router := newTestRouter(&mockCommander{withdrawFn: withdrawFn}, &mockQuerier{})
	w := doRequest(router, http.MethodPost, "/v1/accounts/C/withdraw", map[string]any{"amount": "20"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestWithdrawConflictReturns409(t *testing.T) {
	withdrawFn := func(ctx context.Context, cmd cqrs.WithdrawCommand) (ledger.Account, error) {
		return ledger.Account{}, eventlog.ErrConflict
	}
	router := newTestRouter(&mockCommander{withdrawFn: withdrawFn}, &mockQuerier{})
	w := doRequest(router, http.MethodPost, "/v1/accounts/F/withdraw", map[string]any{"amount": "10"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestTransfer(t *testing.T) {
	transferFn := func(ctx context.Context, cmd cqrs.TransferCommand) (ledger.Account, ledger.Account, error) {
		return testAccount(cmd.FromAccountID, "60"), testAccount(cmd.ToAccountID, "40"), nil
	}
	router := newTestRouter(&mockCommander{transferFn: transferFn}, &mockQuerier{})
	w := doRequest(router, http.MethodPost, "/v1/transfers", map[string]any{
		"from_account_id": "D", "to_account_id": "E", "amount": "40",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestGetAccountNotFound(t *testing.T) {
	getFn := func(ctx context.Context, q cqrs.GetAccountQuery) (*projection.AccountBalanceView, error) {
		return nil, query.ErrNotFound
	}
	router := newTestRouter(&mockCommander{}, &mockQuerier{getFn: getFn})
	w := doRequest(router, http.MethodGet, "/v1/accounts/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestGetAccountFound(t *testing.T) {
	amount, _ := money.New("100.0000")
	getFn := func(ctx context.Context, q cqrs.GetAccountQuery) (*projection.AccountBalanceView, error) {
		return &projection.AccountBalanceView{AccountID: q.AccountID, Balance: amount, Status: "active"}, nil
	}
	router := newTestRouter(&mockCommander{}, &mockQuerier{getFn: getFn})
	w := doRequest(router, http.MethodGet, "/v1/accounts/A", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
}
