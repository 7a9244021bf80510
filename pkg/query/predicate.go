package query

import (
	"fmt"
	"strings"
)

type Operator string

const (
	OpTrue         Operator = "true"
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpBeginsWith   Operator = "beginswith"
	OpIn           Operator = "in"
	OpAnd          Operator = "and"
	OpNot          Operator = "not"
)

// Predicate is a serializable filter over record fields.
//
// Comparison operators use Field and Value, OpAnd and OpNot use Operands.
// The zero Predicate behaves like All.
type Predicate struct {
	Op       Operator    `cbor:"op"`
	Field    string      `cbor:"field,omitempty"`
	Value    any         `cbor:"value"`
	Operands []Predicate `cbor:"operands,omitempty"`
}

// All matches every record.
func All() Predicate {
	return Predicate{Op: OpTrue}
}

func Equal(field string, value any) Predicate {
	return Predicate{Op: OpEqual, Field: field, Value: value}
}

func NotEqual(field string, value any) Predicate {
	return Predicate{Op: OpNotEqual, Field: field, Value: value}
}

func Less(field string, value any) Predicate {
	return Predicate{Op: OpLess, Field: field, Value: value}
}

func LessEqual(field string, value any) Predicate {
	return Predicate{Op: OpLessEqual, Field: field, Value: value}
}

func Greater(field string, value any) Predicate {
	return Predicate{Op: OpGreater, Field: field, Value: value}
}

func GreaterEqual(field string, value any) Predicate {
	return Predicate{Op: OpGreaterEqual, Field: field, Value: value}
}

// BeginsWith matches string fields starting with prefix.
func BeginsWith(field, prefix string) Predicate {
	return Predicate{Op: OpBeginsWith, Field: field, Value: prefix}
}

// In matches fields equal to any of values.
func In(field string, values ...any) Predicate {
	return Predicate{Op: OpIn, Field: field, Value: values}
}

func And(operands ...Predicate) Predicate {
	return Predicate{Op: OpAnd, Operands: operands}
}

func Not(p Predicate) Predicate {
	return Predicate{Op: OpNot, Operands: []Predicate{p}}
}

// Match reports whether fields satisfy p.
// A comparison against a missing field never matches.
//
//nolint:gocyclo
func (p Predicate) Match(fields map[string]any) bool {
	switch p.Op {
	case "", OpTrue:
		return true
	case OpAnd:
		for _, o := range p.Operands {
			if !o.Match(fields) {
				return false
			}
		}
		return true
	case OpNot:
		if len(p.Operands) != 1 {
			return false
		}
		return !p.Operands[0].Match(fields)
	}

	v, ok := fields[p.Field]
	if !ok {
		return false
	}

	switch p.Op {
	case OpEqual:
		return Compare(v, p.Value) == 0
	case OpNotEqual:
		return Compare(v, p.Value) != 0
	case OpLess:
		return Compare(v, p.Value) < 0
	case OpLessEqual:
		return Compare(v, p.Value) <= 0
	case OpGreater:
		return Compare(v, p.Value) > 0
	case OpGreaterEqual:
		return Compare(v, p.Value) >= 0
	case OpBeginsWith:
		s, ok := v.(string)
		prefix, pok := p.Value.(string)
		return ok && pok && strings.HasPrefix(s, prefix)
	case OpIn:
		values, ok := p.Value.([]any)
		if !ok {
			return false
		}
		for _, candidate := range values {
			if Compare(v, candidate) == 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p Predicate) String() string {
	switch p.Op {
	case "", OpTrue:
		return "TRUEPREDICATE"
	case OpAnd:
		parts := make([]string, 0, len(p.Operands))
		for _, o := range p.Operands {
			parts = append(parts, o.String())
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case OpNot:
		if len(p.Operands) != 1 {
			return "NOT ()"
		}
		return "NOT " + p.Operands[0].String()
	case OpBeginsWith:
		return fmt.Sprintf("%s BEGINSWITH %q", p.Field, p.Value)
	case OpIn:
		return fmt.Sprintf("%s IN %v", p.Field, p.Value)
	default:
		if s, ok := p.Value.(string); ok {
			return fmt.Sprintf("%s %s %q", p.Field, p.Op, s)
		}
		return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
	}
}
