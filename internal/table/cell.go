package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Type tags the variant held by a Cell.
type Type uint8

const (
	TypeNull Type = iota
	TypeText
	TypeInt
	TypeFloat
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeText:
		return "text"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// merge returns the narrowest type able to hold values of both a and b.
func merge(a, b Type) Type {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case a == TypeText || b == TypeText:
		return TypeText
	default:
		return TypeFloat
	}
}

// Cell is a single tagged value: Null, Text, Int or Float.
//
// Missing numeric data in the source arrives as NULL or as empty / non-numeric
// text. Float and Int are the only places where text is read as a number;
// every aggregation, ranking, pivot and correlation goes through them so the
// coercion rules live in one spot.
type Cell struct {
	typ Type
	s   string
	i   int64
	f   float64
}

func Null() Cell         { return Cell{} }
func Text(s string) Cell { return Cell{typ: TypeText, s: s} }
func Int(i int64) Cell   { return Cell{typ: TypeInt, i: i} }

// Float returns a Float cell. NaN is stored as Null.
func Float(f float64) Cell {
	if math.IsNaN(f) {
		return Cell{}
	}
	return Cell{typ: TypeFloat, f: f}
}

// Of converts a driver value into a Cell. Unknown types become Text using
// their fmt representation.
func Of(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Null()
	case Cell:
		return t
	case string:
		return Text(t)
	case []byte:
		if t == nil {
			return Null()
		}
		return Text(string(t))
	case bool:
		if t {
			return Int(1)
		}
		return Int(0)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return Float(float64(t))
		}
		return Int(int64(t))
	case uint:
		return Of(uint64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case time.Time:
		return Text(t.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return Text(t.String())
	default:
		return Text(fmt.Sprint(v))
	}
}

func (c Cell) Type() Type   { return c.typ }
func (c Cell) IsNull() bool { return c.typ == TypeNull }

// String renders the cell. Null renders as the empty string.
func (c Cell) String() string {
	switch c.typ {
	case TypeText:
		return c.s
	case TypeInt:
		return strconv.FormatInt(c.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	default:
		return ""
	}
}

// Float reads the cell as a finite number. Null, empty text and text that
// does not parse report ok=false.
func (c Cell) Float() (float64, bool) {
	switch c.typ {
	case TypeInt:
		return float64(c.i), true
	case TypeFloat:
		if math.IsInf(c.f, 0) {
			return 0, false
		}
		return c.f, true
	case TypeText:
		s := strings.TrimSpace(c.s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FloatOrZero is Float with missing values read as 0.
func (c Cell) FloatOrZero() float64 {
	f, _ := c.Float()
	return f
}

// Int reads the cell as an integer. Floats qualify only when integral; text
// must hold a base-10 integer.
func (c Cell) Int() (int64, bool) {
	switch c.typ {
	case TypeInt:
		return c.i, true
	case TypeFloat:
		if c.f != math.Trunc(c.f) || math.IsInf(c.f, 0) || c.f > math.MaxInt64 || c.f < math.MinInt64 {
			return 0, false
		}
		return int64(c.f), true
	case TypeText:
		i, err := strconv.ParseInt(strings.TrimSpace(c.s), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Key is the partition identity of the cell. Text is NFC-normalized so
// composed and decomposed spellings of the same name land in one partition;
// integral floats share a key with the equal integer.
func (c Cell) Key() string {
	switch c.typ {
	case TypeText:
		return norm.NFC.String(c.s)
	case TypeFloat:
		if i, ok := c.Int(); ok {
			return strconv.FormatInt(i, 10)
		}
		return c.String()
	default:
		return c.String()
	}
}

// Compare orders cells: Null first, then numbers by value, then text.
func Compare(a, b Cell) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return 0
	case 1:
		if a.typ == TypeInt && b.typ == TypeInt {
			return cmp3(a.i, b.i)
		}
		return cmp3(a.num(), b.num())
	default:
		return strings.Compare(a.Key(), b.Key())
	}
}

// num is the raw value of a numeric cell, infinities included.
func (c Cell) num() float64 {
	if c.typ == TypeInt {
		return float64(c.i)
	}
	return c.f
}

func rank(c Cell) int {
	switch c.typ {
	case TypeNull:
		return 0
	case TypeInt, TypeFloat:
		return 1
	default:
		return 2
	}
}

func cmp3[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
