package formula

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the type of a Value.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is the value of a cell. The zero Value is empty.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Bool   bool
}

func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: n}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// Literal parses the content of a cell that is not a formula.
func Literal(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}
	}

	if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return Number(n)
	}

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}

	return Text(s)
}

// String formats the value the way a spreadsheet displays it.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		if v.Bool {
			return "TRUE"
		}

		return "FALSE"
	default:
		return ""
	}
}

// MarshalJSON encodes the value as a JSON number, string, boolean or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindText:
		return json.Marshal(v.Text)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	switch val := raw.(type) {
	case float64:
		*v = Number(val)
	case string:
		*v = Text(val)
	case bool:
		*v = Bool(val)
	default:
		*v = Value{}
	}

	return nil
}

func (v Value) toNumber() (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Number, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}

		return 0, nil
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, ErrValue
		}

		return n, nil
	default:
		return 0, nil
	}
}

func (v Value) toBool() (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindNumber:
		return v.Number != 0, nil
	case KindText:
		switch strings.ToUpper(strings.TrimSpace(v.Text)) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}

		return false, ErrValue
	default:
		return false, nil
	}
}

// rank orders values of different kinds: numbers, then text, then booleans.
func (v Value) rank() int {
	switch v.Kind {
	case KindText:
		return 1
	case KindBool:
		return 2
	default:
		return 0
	}
}

// compare returns -1, 0 or 1. Text is compared without case.
func compare(a, b Value) int {
	// an empty value takes the kind of the other side
	switch {
	case a.Kind == KindEmpty && b.Kind == KindText:
		a = Text("")
	case b.Kind == KindEmpty && a.Kind == KindText:
		b = Text("")
	case a.Kind == KindEmpty && b.Kind == KindBool:
		a = Bool(false)
	case b.Kind == KindEmpty && a.Kind == KindBool:
		b = Bool(false)
	}

	if ra, rb := a.rank(), b.rank(); ra != rb {
		if ra < rb {
			return -1
		}

		return 1
	}

	switch a.Kind {
	case KindText:
		return strings.Compare(strings.ToUpper(a.Text), strings.ToUpper(b.Text))
	case KindBool:
		switch {
		case a.Bool == b.Bool:
			return 0
		case b.Bool:
			return -1
		default:
			return 1
		}
	default:
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		default:
			return 0
		}
	}
}
