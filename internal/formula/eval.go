package formula

import (
	"math"

	"github.com/pkg/errors"
)

// Lookup returns the current value of a cell. ok is false for a cell without value.
type Lookup func(id string) (value Value, ok bool)

type evaluation struct {
	lookup Lookup
}

func (e *evaluation) cell(id string) Value {
	if e.lookup == nil {
		return Value{}
	}

	value, ok := e.lookup(id)
	if !ok {
		return Value{}
	}

	return value
}

func (e *evaluation) eval(n node) (Value, error) {
	switch n := n.(type) {
	case literalNode:
		return n.value, nil
	case refNode:
		return e.cell(n.id), nil
	case rangeNode:
		return Value{}, errors.Wrapf(ErrRange, "range %s:%s used as a single value", n.from, n.to)
	case unaryNode:
		return e.unary(n)
	case percentNode:
		v, err := e.number(n.operand)
		if err != nil {
			return Value{}, err
		}

		return Number(v / 100), nil
	case binaryNode:
		return e.binary(n)
	case callNode:
		return e.call(n)
	default:
		return Value{}, errors.Wrapf(ErrSyntax, "unknown node %T", n)
	}
}

func (e *evaluation) number(n node) (float64, error) {
	v, err := e.eval(n)
	if err != nil {
		return 0, err
	}

	return v.toNumber()
}

func (e *evaluation) unary(n unaryNode) (Value, error) {
	v, err := e.number(n.operand)
	if err != nil {
		return Value{}, err
	}

	if n.op == "-" {
		return Number(-v), nil
	}

	return Number(v), nil
}

func (e *evaluation) binary(n binaryNode) (Value, error) {
	left, err := e.eval(n.left)
	if err != nil {
		return Value{}, err
	}

	right, err := e.eval(n.right)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case "&":
		return Text(left.String() + right.String()), nil
	case "=":
		return Bool(compare(left, right) == 0), nil
	case "<>":
		return Bool(compare(left, right) != 0), nil
	case "<":
		return Bool(compare(left, right) < 0), nil
	case ">":
		return Bool(compare(left, right) > 0), nil
	case "<=":
		return Bool(compare(left, right) <= 0), nil
	case ">=":
		return Bool(compare(left, right) >= 0), nil
	}

	l, err := left.toNumber()
	if err != nil {
		return Value{}, err
	}

	r, err := right.toNumber()
	if err != nil {
		return Value{}, err
	}

	var res float64

	switch n.op {
	case "+":
		res = l + r
	case "-":
		res = l - r
	case "*":
		res = l * r
	case "/":
		if r == 0 {
			return Value{}, ErrDivisionByZero
		}

		res = l / r
	case "^":
		res = math.Pow(l, r)
	default:
		return Value{}, errors.Wrapf(ErrSyntax, "unknown operator %q", n.op)
	}

	if math.IsNaN(res) || math.IsInf(res, 0) {
		return Value{}, errors.Wrapf(ErrValue, "%v %s %v", l, n.op, r)
	}

	return Number(res), nil
}

// values evaluates the arguments of a function. Ranges are expanded; fromRange tells which
// values come from one.
func (e *evaluation) values(args []node) (values []Value, fromRange []bool, err error) {
	for _, arg := range args {
		if r, ok := arg.(rangeNode); ok {
			cells, err := r.cells()
			if err != nil {
				return nil, nil, err
			}

			for _, id := range cells {
				values = append(values, e.cell(id))
				fromRange = append(fromRange, true)
			}

			continue
		}

		v, err := e.eval(arg)
		if err != nil {
			return nil, nil, err
		}

		values = append(values, v)
		fromRange = append(fromRange, false)
	}

	return values, fromRange, nil
}

// numbers returns the numeric arguments. Values read from ranges that are not numbers are
// skipped, other arguments must convert to a number.
func (e *evaluation) numbers(args []node) ([]float64, error) {
	values, fromRange, err := e.values(args)
	if err != nil {
		return nil, err
	}

	res := make([]float64, 0, len(values))

	for i, v := range values {
		if fromRange[i] && v.Kind != KindNumber {
			continue
		}

		n, err := v.toNumber()
		if err != nil {
			return nil, err
		}

		res = append(res, n)
	}

	return res, nil
}

func (e *evaluation) call(n callNode) (Value, error) {
	switch n.name {
	case "SUM":
		nums, err := e.numbers(n.args)
		if err != nil {
			return Value{}, err
		}

		sum := 0.0
		for _, v := range nums {
			sum += v
		}

		return Number(sum), nil
	case "MIN", "MAX":
		nums, err := e.numbers(n.args)
		if err != nil {
			return Value{}, err
		}

		if len(nums) == 0 {
			return Number(0), nil
		}

		res := nums[0]
		for _, v := range nums[1:] {
			if (n.name == "MIN" && v < res) || (n.name == "MAX" && v > res) {
				res = v
			}
		}

		return Number(res), nil
	case "AVERAGE":
		nums, err := e.numbers(n.args)
		if err != nil {
			return Value{}, err
		}

		if len(nums) == 0 {
			return Value{}, ErrDivisionByZero
		}

		sum := 0.0
		for _, v := range nums {
			sum += v
		}

		return Number(sum / float64(len(nums))), nil
	case "CONCAT":
		values, _, err := e.values(n.args)
		if err != nil {
			return Value{}, err
		}

		res := ""
		for _, v := range values {
			res += v.String()
		}

		return Text(res), nil
	case "IF":
		return e.ifCall(n)
	default:
		return Value{}, errors.Wrapf(ErrUnknownFunction, "%s", n.name)
	}
}

func (e *evaluation) ifCall(n callNode) (Value, error) {
	if len(n.args) < 2 || len(n.args) > 3 {
		return Value{}, errors.Wrap(ErrValue, "IF expects 2 or 3 arguments")
	}

	cond, err := e.eval(n.args[0])
	if err != nil {
		return Value{}, err
	}

	ok, err := cond.toBool()
	if err != nil {
		return Value{}, err
	}

	switch {
	case ok:
		return e.eval(n.args[1])
	case len(n.args) == 3:
		return e.eval(n.args[2])
	default:
		return Bool(false), nil
	}
}
