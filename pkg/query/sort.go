package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sharednotes/sharednotes.go/pkg/models"
)

// Compare orders two field values.
//
// Values of different kinds order as nil < bool < number < string < time.
// Integers and floats of any width compare by numeric value, which matters
// because CBOR decodes non-negative integers as uint64. Values of any other
// type compare by their fmt representation.
func Compare(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch ka {
	case kindNil:
		return 0
	case kindBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case kindNumber:
		return compareNumbers(a, b)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// SortRecords sorts records in place by sorts, keeping the relative order of
// records that compare equal on every key.
func SortRecords(records []*models.Record, sorts []SortDescriptor) {
	if len(sorts) == 0 {
		return
	}

	slices.SortStableFunc(records, func(a, b *models.Record) int {
		for _, s := range sorts {
			c := Compare(a.Fields[s.Key], b.Fields[s.Key])
			if c == 0 {
				continue
			}
			if !s.Ascending {
				c = -c
			}
			return c
		}
		return 0
	})
}

const (
	kindNil = iota
	kindBool
	kindNumber
	kindString
	kindTime
	kindOther
)

func kindOf(v any) int {
	switch v.(type) {
	case nil:
		return kindNil
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return kindNumber
	case string:
		return kindString
	case time.Time:
		return kindTime
	default:
		return kindOther
	}
}

func compareNumbers(a, b any) int {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		return cmp.Compare(ai, bi)
	}

	au, aUint := a.(uint64)
	bu, bUint := b.(uint64)
	if aUint && bUint {
		return cmp.Compare(au, bu)
	}

	return cmp.Compare(asFloat(a), asFloat(b))
}

// asInt reports v as an int64 when it fits without loss.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= 1<<63-1
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= 1<<63-1
	default:
		return 0, false
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		i, _ := asInt(v)
		return float64(i)
	}
}
