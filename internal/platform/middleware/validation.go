package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RejectedField is one struct-tag rule an incoming command/query request
// failed, keyed by the ledger field name (account_id, amount, ...) rather
// than the Go struct field name, so a caller never has to know the wire
// JSON tag differs from the Go identifier.
type RejectedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Rule   string `json:"rule"`
}

// RequestRejected is the envelope every command/query ingress endpoint
// responds with on a struct-tag validation failure, distinct from
// writeCommandError's domain-rule-violation envelope (internal/handler):
// this one fires before a command ever reaches the ledger, so it carries
// no account_id/rule/details vocabulary from ledger.DomainError.
type RequestRejected struct {
	Message string          `json:"message"`
	Fields  []RejectedField `json:"fields"`
}

// ValidateRequest runs the struct tags on obj and returns one
// RejectedField per failed rule, or nil if obj is valid.
func ValidateRequest(obj any) []RejectedField {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var out []RejectedField
	for _, fieldErr := range err.(validator.ValidationErrors) {
		out = append(out, RejectedField{
			Field:  fieldErr.Field(),
			Reason: rejectionReason(fieldErr),
			Rule:   fieldErr.Tag(),
		})
	}
	return out
}

// rejectionReason renders a human-readable reason for the subset of
// validator tags the command/query requests in internal/handler actually
// use (requests.go): required fields and account_type's oneof=checking
// savings. Amounts are validated separately by internal/platform/money,
// which parses the decimal string itself rather than relying on a
// validator tag.
func rejectionReason(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + err.Param()
	case "gt":
		return "must be greater than " + err.Param()
	case "gte":
		return "must be greater than or equal to " + err.Param()
	default:
		return "invalid value"
	}
}

func RespondWithValidationError(c *gin.Context, fields []RejectedField) {
	c.JSON(http.StatusBadRequest, RequestRejected{
		Message: "request failed validation",
		Fields:  fields,
	})
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"message": message})
}
