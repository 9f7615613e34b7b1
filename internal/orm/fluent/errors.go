package fluent

import (
	"errors"
	"fmt"
	"reflect"
)

// InvalidExpressionError is raised when a member path is not a plain chain of
// exported struct fields of the configured type
type InvalidExpressionError struct {
	Type   reflect.Type
	Expr   string
	Reason string
}

// Error implements the error interface
func (e *InvalidExpressionError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("invalid member expression %q: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("invalid member expression %q on %s: %s", e.Expr, e.Type, e.Reason)
}

// IsInvalidExpression returns true if err is an InvalidExpressionError
func IsInvalidExpression(err error) bool {
	var exprErr *InvalidExpressionError
	return errors.As(err, &exprErr)
}
