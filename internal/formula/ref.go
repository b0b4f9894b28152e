package formula

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const maxRangeCells = 10000

type cellRef struct {
	col int
	row int
}

func parseCellRef(text string) (cellRef, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), "$", ""))

	i := 0
	col := 0

	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}

	if i == 0 || i == len(s) || i > 3 {
		return cellRef{}, errors.Wrapf(ErrRange, "invalid reference %q", text)
	}

	row, err := strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return cellRef{}, errors.Wrapf(ErrRange, "invalid reference %q", text)
	}

	return cellRef{col: col, row: row}, nil
}

func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}

	return name
}

func (c cellRef) String() string {
	return columnName(c.col) + strconv.Itoa(c.row)
}

// cells lists the cells of the rectangle row by row.
func (r rangeNode) cells() ([]string, error) {
	minCol, maxCol := min(r.from.col, r.to.col), max(r.from.col, r.to.col)
	minRow, maxRow := min(r.from.row, r.to.row), max(r.from.row, r.to.row)

	if (maxCol-minCol+1)*(maxRow-minRow+1) > maxRangeCells {
		return nil, errors.Wrapf(ErrRange, "range %s:%s is too large", r.from, r.to)
	}

	res := make([]string, 0, (maxCol-minCol+1)*(maxRow-minRow+1))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			res = append(res, cellRef{col: col, row: row}.String())
		}
	}

	return res, nil
}
