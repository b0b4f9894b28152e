package formula_test

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cellflow/internal/formula"
)

func sheetLookup(values map[string]formula.Value) formula.Lookup {
	return func(id string) (formula.Value, bool) {
		v, ok := values[id]

		return v, ok
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	values := map[string]formula.Value{
		"A1": formula.Number(1),
		"A2": formula.Number(2),
		"A3": formula.Number(3),
		"B1": formula.Text("hello"),
		"B2": formula.Text("12"),
		"C1": formula.Bool(true),
	}

	tcs := map[string]struct {
		formula string
		want    formula.Value
	}{
		"literal number":       {formula: "42", want: formula.Number(42)},
		"literal text":         {formula: "hello world", want: formula.Text("hello world")},
		"literal bool":         {formula: "true", want: formula.Bool(true)},
		"empty":                {formula: "", want: formula.Value{}},
		"addition":             {formula: "=1+2", want: formula.Number(3)},
		"precedence":           {formula: "=1+2*3", want: formula.Number(7)},
		"parenthesis":          {formula: "=(1+2)*3", want: formula.Number(9)},
		"exponent":             {formula: "=2^3", want: formula.Number(8)},
		"negation":             {formula: "=-A2*2", want: formula.Number(-4)},
		"percent":              {formula: "=50%", want: formula.Number(0.5)},
		"references":           {formula: "=A1+A2+A3", want: formula.Number(6)},
		"absolute reference":   {formula: "=$A$1+A$2", want: formula.Number(3)},
		"sheet reference":      {formula: "=Sheet1!A3*2", want: formula.Number(6)},
		"lower case reference": {formula: "=a1+a2", want: formula.Number(3)},
		"missing reference":    {formula: "=Z9+1", want: formula.Number(1)},
		"numeric text":         {formula: "=B2+1", want: formula.Number(13)},
		"bool as number":       {formula: "=C1+1", want: formula.Number(2)},
		"concatenation":        {formula: `=B1&" "&A1`, want: formula.Text("hello 1")},
		"comparison":           {formula: "=A1<A2", want: formula.Bool(true)},
		"text comparison":      {formula: `=B1="HELLO"`, want: formula.Bool(true)},
		"not equal":            {formula: "=A1<>A1", want: formula.Bool(false)},
		"sum range":            {formula: "=SUM(A1:A3)", want: formula.Number(6)},
		"sum args":             {formula: "=SUM(A1, 10, A3)", want: formula.Number(14)},
		"sum skips text":       {formula: "=SUM(A1:B2)", want: formula.Number(3)},
		"sum empty":            {formula: "=SUM()", want: formula.Number(0)},
		"min":                  {formula: "=MIN(A1:A3, 0)", want: formula.Number(0)},
		"max":                  {formula: "=MAX(A3:A1)", want: formula.Number(3)},
		"average":              {formula: "=AVERAGE(A1:A3)", want: formula.Number(2)},
		"concat":               {formula: `=CONCAT(B1, "-", A1:A2)`, want: formula.Text("hello-12")},
		"if true":              {formula: `=IF(A1<A2, "yes", "no")`, want: formula.Text("yes")},
		"if false":             {formula: `=IF(A1>A2, "yes", "no")`, want: formula.Text("no")},
		"if without else":      {formula: `=IF(FALSE, 1)`, want: formula.Bool(false)},
		"if lazy":              {formula: `=IF(TRUE, 1, 1/0)`, want: formula.Number(1)},
		"nested":               {formula: "=SUM(A1, MAX(A2:A3))*2", want: formula.Number(8)},
		"function lower case":  {formula: "=sum(A1:A2)", want: formula.Number(3)},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ev := formula.NewEvaluator(sheetLookup(values))

			got, err := ev.Evaluate(context.Background(), tc.formula)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	values := map[string]formula.Value{
		"A1": formula.Text("hello"),
	}

	tcs := map[string]struct {
		formula string
		wantErr error
	}{
		"division by zero":    {formula: "=1/0", wantErr: formula.ErrDivisionByZero},
		"empty division":      {formula: "=1/Z1", wantErr: formula.ErrDivisionByZero},
		"average of nothing":  {formula: "=AVERAGE(Z1:Z3)", wantErr: formula.ErrDivisionByZero},
		"text arithmetic":     {formula: "=A1+1", wantErr: formula.ErrValue},
		"text in sum":         {formula: "=SUM(A1)", wantErr: formula.ErrValue},
		"unknown function":    {formula: "=FOO(1)", wantErr: formula.ErrUnknownFunction},
		"range as value":      {formula: "=A1:A3+1", wantErr: formula.ErrRange},
		"invalid reference":   {formula: "=FOO+1", wantErr: formula.ErrRange},
		"missing operand":     {formula: "=1+", wantErr: formula.ErrSyntax},
		"missing parenthesis": {formula: "=(1+2", wantErr: formula.ErrSyntax},
		"only equal":          {formula: "=", wantErr: formula.ErrSyntax},
		"if arity":            {formula: "=IF(1)", wantErr: formula.ErrValue},
		"overflow":            {formula: "=10^400", wantErr: formula.ErrValue},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ev := formula.NewEvaluator(sheetLookup(values))

			_, err := ev.Evaluate(context.Background(), tc.formula)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestEvaluateCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := formula.NewEvaluator(nil).Evaluate(ctx, "=1+1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValueJSON(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		value formula.Value
		want  string
	}{
		"number": {value: formula.Number(1.5), want: `1.5`},
		"text":   {value: formula.Text("a"), want: `"a"`},
		"bool":   {value: formula.Bool(true), want: `true`},
		"empty":  {value: formula.Value{}, want: `null`},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))

			var back formula.Value

			require.NoError(t, json.Unmarshal(got, &back))
			assert.Equal(t, tc.value, back)
		})
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3", formula.Number(3).String())
	assert.Equal(t, "0.25", formula.Number(0.25).String())
	assert.Equal(t, "TRUE", formula.Bool(true).String())
	assert.Equal(t, "", formula.Value{}.String())
}
