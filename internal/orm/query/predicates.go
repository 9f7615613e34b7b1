package query

import (
	"fmt"
	"strings"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
	OpLike
	OpIsNull
	OpIsNotNull
	OpBetween
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpLike:
		return "LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpBetween:
		return "BETWEEN"
	default:
		return "UNKNOWN"
	}
}

// Condition is one WHERE condition on a member of the mapped type
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
	Or       bool // true for OR, false for AND
}

// Where creates an AND condition
func Where(field string, op Operator, value interface{}) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// OrWhere creates an OR condition
func OrWhere(field string, op Operator, value interface{}) Condition {
	return Condition{Field: field, Operator: op, Value: value, Or: true}
}

// Eq is shorthand for Where(field, OpEqual, value)
func Eq(field string, value interface{}) Condition {
	return Where(field, OpEqual, value)
}

// In matches any of values
func In(field string, values ...interface{}) Condition {
	return Where(field, OpIn, values)
}

// IsNull matches NULL columns
func IsNull(field string) Condition {
	return Where(field, OpIsNull, nil)
}

// Between matches min <= field <= max
func Between(field string, min, max interface{}) Condition {
	return Where(field, OpBetween, []interface{}{min, max})
}

// params collects bound values and renders their placeholders
type params struct {
	dialect Dialect
	args    []interface{}
}

func (p *params) add(v interface{}) string {
	p.args = append(p.args, v)
	return p.dialect.Placeholder(len(p.args))
}

// conditionToSQL renders cond against an already quoted column. convert
// turns each compared value into its storage form.
func conditionToSQL(cond Condition, column string, p *params, convert func(interface{}) (interface{}, error)) (string, error) {
	bind := func(v interface{}) (string, error) {
		sv, err := convert(v)
		if err != nil {
			return "", err
		}
		return p.add(sv), nil
	}

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpLike:
		ph, err := bind(cond.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", column, cond.Operator, ph), nil

	case OpIn, OpNotIn:
		values, ok := cond.Value.([]interface{})
		if !ok {
			return "", fmt.Errorf("%s operator requires []interface{} value", cond.Operator)
		}
		if len(values) == 0 {
			// An empty list matches nothing for IN and everything for NOT IN
			if cond.Operator == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}

		placeholders := make([]string, len(values))
		for i, v := range values {
			ph, err := bind(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = ph
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", column, cond.Operator), nil

	case OpBetween:
		values, ok := cond.Value.([]interface{})
		if !ok || len(values) != 2 {
			return "", fmt.Errorf("BETWEEN operator requires [min, max] values")
		}
		lo, err := bind(values[0])
		if err != nil {
			return "", err
		}
		hi, err := bind(values[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, lo, hi), nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", cond.Operator)
	}
}
