package ledger

import "fmt"

// Rule names a violated business rule, carried on DomainError so callers
// can surface it verbatim (spec.md §7) rather than parsing an error string.
type Rule string

const (
	RuleAccountAlreadyExists  Rule = "account_already_exists"
	RuleNegativeOpeningBalance Rule = "negative_opening_balance"
	RuleAccountNotFound       Rule = "account_not_found"
	RuleAccountClosed         Rule = "account_closed"
	RuleNonPositiveAmount     Rule = "non_positive_amount"
	RuleInsufficientFunds     Rule = "insufficient_funds"
	RuleCloseWithBalance      Rule = "close_with_nonzero_balance"
	RuleSameAccountTransfer   Rule = "transfer_to_self"
)

// DomainError is the single error kind for command-validation failures.
// It carries the offending rule and the values involved so the caller can
// inspect them programmatically instead of matching on Error() text.
type DomainError struct {
	Rule    Rule
	Account string
	Details map[string]string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain rule violated: %s (account=%s, details=%v)", e.Rule, e.Account, e.Details)
}

func newDomainError(rule Rule, account string, details map[string]string) *DomainError {
	return &DomainError{Rule: rule, Account: account, Details: details}
}
